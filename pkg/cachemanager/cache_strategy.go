package cachemanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/memo"
	redis "github.com/redis/go-redis/v9"
)

// Strategy is a memo.Store backed by Redis.
type Strategy struct {
	appPrefix string
	client    redis.UniversalClient
}

var _ memo.Store = (*Strategy)(nil)

// NewStrategy creates a new Strategy with the given Redis client. Every key
// is namespaced with appPrefix.
func NewStrategy(appPrefix string, client redis.UniversalClient) *Strategy {
	return &Strategy{appPrefix: appPrefix, client: client}
}

// Key constructs a namespaced key by joining the provided parameters with a separator.
func (s Strategy) Key(params ...string) string {
	if s.appPrefix != "" {
		params = append([]string{s.appPrefix}, params...)
	}
	return strings.Join(params, ":")
}

func (s Strategy) Has(ctx context.Context, key memo.Key) (bool, error) {
	exist, err := s.client.Exists(ctx, s.Key(key.String())).Result()
	if err != nil {
		return false, fmt.Errorf("error checking existence of key %s: %w", key.String(), err)
	}

	return exist > 0, nil
}

func (s Strategy) Get(ctx context.Context, key memo.Key) ([]byte, error) {
	v, err := s.client.Get(ctx, s.Key(key.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, memo.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("error getting value for key %s: %w", key.String(), err)
	}

	return v, nil
}

func (s Strategy) Put(ctx context.Context, key memo.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("error setting value for key %s: ttl must be positive, got %s", key.String(), ttl)
	}

	if err := s.client.Set(ctx, s.Key(key.String()), value, ttl).Err(); err != nil {
		return fmt.Errorf("error setting value for key %s: %w", key.String(), err)
	}

	return nil
}

// TTL returns the remaining lifetime of key. It is meant for diagnostics.
func (s Strategy) TTL(ctx context.Context, key memo.Key) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.Key(key.String())).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting ttl for key %s: %w", key.String(), err)
	}

	return ttl, nil
}
