package interstore

import (
	"context"
	"testing"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func setupMongoContainer(t *testing.T) (*mongo.Client, func()) {
	if testing.Short() {
		t.Skip("skipping mongodb container test in short mode")
	}

	ctx := context.Background()
	mongoContainer, err := mongodb.Run(ctx, "mongo:6.0")
	if err != nil {
		t.Fatalf("Failed to start MongoDB container: %s", err)
	}

	connectionString, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get MongoDB connection string: %s", err)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(connectionString))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %s", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("Failed to ping MongoDB: %s", err)
	}

	return client, func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %s", err)
		}
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MongoDB container: %s", err)
		}
	}
}

func TestMongoStore(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupMongoContainer(t)
	defer cleanup()

	store := NewMongoStore(client, "cachefn_test")
	require.NoError(t, store.EnsureIndexes(ctx))

	t.Run("missing key", func(t *testing.T) {
		exists, err := store.Has(ctx, memo.Key("missing"))
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Get(ctx, memo.Key("missing"))
		assert.ErrorIs(t, err, memo.ErrCacheMiss)
	})

	t.Run("put then get", func(t *testing.T) {
		key := memo.Key("stored")
		require.NoError(t, store.Put(ctx, key, []byte(`500`), time.Minute))

		exists, err := store.Has(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		v, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`500`), v)
	})

	t.Run("put overwrites", func(t *testing.T) {
		key := memo.Key("overwritten")
		require.NoError(t, store.Put(ctx, key, []byte(`1`), time.Minute))
		require.NoError(t, store.Put(ctx, key, []byte(`2`), time.Minute))

		v, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`2`), v)

		count, err := store.collection.CountDocuments(ctx, bson.D{{Key: "_id", Value: key.String()}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("expired entry is not served", func(t *testing.T) {
		key := memo.Key("expired")
		require.NoError(t, store.Put(ctx, key, []byte(`1`), time.Minute))

		store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		defer func() { store.now = time.Now }()

		exists, err := store.Has(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, memo.ErrCacheMiss)
	})
}
