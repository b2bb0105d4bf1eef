package storests

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/redis/go-redis/v9"
)

const (
	insightsPrefix   = "insights"
	separator        = ":"
	defaultRetention = 48 * time.Hour
)

// Store records dispatch events in Redis sorted sets, one per outcome and
// method per day, scored by the event time.
type Store struct {
	cache     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var _ memo.Observer = (*Store)(nil)

func NewStore(appPrefix string, cache redis.UniversalClient) *Store {
	return &Store{
		cache:     cache,
		prefix:    appPrefix,
		retention: defaultRetention,
		now:       time.Now,
	}
}

func (s *Store) Observe(ctx context.Context, event memo.Event) error {
	at := event.At
	if at.IsZero() {
		at = s.now().UTC()
	}

	metric := domain.Metric{
		Tag:            event.Tag,
		Method:         event.Method,
		Outcome:        string(event.Outcome),
		TTLSeconds:     event.TTL.Seconds(),
		TimeDurationMs: event.Duration.Milliseconds(),
		TimeEnded:      at,
	}

	payload, err := json.Marshal(metric)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	key := s.key(at, "dispatch", metric.Outcome, metric.Tag, metric.Method)
	if err := s.cache.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: payload}).Err(); err != nil {
		return fmt.Errorf("failed to save dispatch event: %w", err)
	}

	if err := s.cache.Expire(ctx, key, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to set retention on %s: %w", key, err)
	}

	return s.groupInsights(ctx, at, key)
}

func (s *Store) GetAll(ctx context.Context) (output domain.Metrics, err error) {
	insightsKeys, err := s.cache.SUnion(ctx, s.groupKeys()...).Result()
	if err != nil {
		err = fmt.Errorf("failed to get insights keys: %w", err)
		return
	}
	sort.Strings(insightsKeys)

	for _, key := range insightsKeys {
		values, er := s.cache.ZRange(ctx, key, 0, -1).Result()
		if er != nil {
			err = fmt.Errorf("failed to get insights values for key %s: %w", key, er)
			return
		}

		for _, v := range values {
			var metric domain.Metric
			if err = json.Unmarshal([]byte(v), &metric); err != nil {
				err = fmt.Errorf("failed to unmarshal insights for key %s: %w", key, err)
				return
			}

			output = append(output, metric)
		}
	}

	return
}

// key buckets by the UTC day of the event, not the day it is written.
func (s *Store) key(day time.Time, typeEvent string, values ...string) string {
	v := []string{insightsPrefix, typeEvent}
	if s.prefix != "" {
		v = append([]string{s.prefix}, v...)
	}
	v = append(v, values...)
	v = append(v, day.UTC().Format(time.DateOnly))
	return strings.Join(v, separator)
}

// groupKeys lists the group sets of every day the retention window touches.
func (s *Store) groupKeys() []string {
	now := s.now().UTC()
	days := int(s.retention/(24*time.Hour)) + 1
	keys := make([]string, 0, days)
	for i := days; i >= 0; i-- {
		keys = append(keys, s.key(now.AddDate(0, 0, -i), "group-insights"))
	}
	return keys
}

func (s *Store) groupInsights(ctx context.Context, at time.Time, key string) error {
	k := s.key(at, "group-insights")
	if err := s.cache.SAdd(ctx, k, key).Err(); err != nil {
		return fmt.Errorf("failed to group insights key %s: %w", key, err)
	}

	return s.cache.Expire(ctx, k, s.retention).Err()
}
