package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/IsaacDSC/cachefn/internal/cfg"
	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/IsaacDSC/cachefn/internal/interstore"
	"github.com/IsaacDSC/cachefn/internal/storests"
	"github.com/IsaacDSC/cachefn/pkg/cachemanager"
	"github.com/IsaacDSC/cachefn/pkg/logs"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const purgeInterval = 5 * time.Minute

type InsightsStore interface {
	memo.Observer
	GetAll(ctx context.Context) (domain.Metrics, error)
}

// Backend is the cache store selected by CACHE_DRIVER together with the
// insights recorder that goes with it.
type Backend struct {
	Store    memo.Store
	Insights InsightsStore
	closers  []func(ctx context.Context) error
}

func NewBackend(ctx context.Context, c cfg.Config) (*Backend, error) {
	b := &Backend{}

	switch c.Cache.Driver {
	case cfg.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: c.Cache.CacheAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Cache.CacheAddr, err)
		}
		b.Store = cachemanager.NewStrategy(c.Cache.Prefix, client)
		b.Insights = storests.NewStore(c.Cache.Prefix, client)
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })

	case cfg.DriverMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(c.ConfigDatabase.DbConn))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		b.closers = append(b.closers, client.Disconnect)

		if err := client.Ping(ctx, nil); err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}

		store := interstore.NewMongoStore(client, c.Cache.Prefix)
		if err := store.EnsureIndexes(ctx); err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.Store = store
		b.Insights = storests.NewMemStore()

	case cfg.DriverPostgres:
		store, err := interstore.NewPostgresStoreFromDSN(c.ConfigDatabase.DbConn)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return store.Close() })

		if err := store.Migrate(ctx); err != nil {
			b.Close(ctx)
			return nil, err
		}

		purgeCtx, cancel := context.WithCancel(context.Background())
		go purgeExpired(purgeCtx, store, purgeInterval)
		b.closers = append(b.closers, func(context.Context) error { cancel(); return nil })

		b.Store = store
		b.Insights = storests.NewMemStore()

	default:
		b.Store = interstore.NewMemStore()
		b.Insights = storests.NewMemStore()
	}

	logs.Info("cache backend ready", "driver", c.Cache.Driver)

	return b, nil
}

// Close releases connections in reverse order of creation.
func (b *Backend) Close(ctx context.Context) error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}

func purgeExpired(ctx context.Context, store *interstore.PostgresStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge(ctx)
			if err != nil {
				logs.Error("failed to purge expired cache rows", "error", err)
				continue
			}
			if n > 0 {
				logs.Debug("purged expired cache rows", "rows", n)
			}
		}
	}
}
