package interstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultMongoDatabase = "cachefn"
const collectionFunctionCache = "function_cache"

type cacheDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	ExpiresAt time.Time `bson:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps entries in a collection with a TTL index on expires_at.
// The TTL monitor runs about once a minute, so reads also filter on expiry.
type MongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ memo.Store = (*MongoStore)(nil)

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}

	return &MongoStore{
		collection: client.Database(dbName).Collection(collectionFunctionCache),
		now:        time.Now,
	}
}

// EnsureIndexes creates the TTL index used by MongoDB to purge expired entries.
func (r *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create ttl index: %w", err)
	}

	return nil
}

func (r *MongoStore) Has(ctx context.Context, key memo.Key) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, r.liveFilter(key), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check cache entry %s: %w", key.String(), err)
	}

	return count > 0, nil
}

func (r *MongoStore) Get(ctx context.Context, key memo.Key) ([]byte, error) {
	var doc cacheDocument
	if err := r.collection.FindOne(ctx, r.liveFilter(key)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			ctxlogger.GetLogger(ctx).Debug("No documents found", "key", key)
			return nil, memo.ErrCacheMiss
		}

		return nil, fmt.Errorf("failed to get cache entry %s: %w", key.String(), err)
	}

	return doc.Value, nil
}

func (r *MongoStore) Put(ctx context.Context, key memo.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("failed to put cache entry %s: ttl must be positive, got %s", key.String(), ttl)
	}

	now := r.now().UTC()
	filter := bson.D{{Key: "_id", Value: key.String()}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "value", Value: value},
		{Key: "expires_at", Value: now.Add(ttl)},
		{Key: "updated_at", Value: now},
	}}}

	if _, err := r.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		ctxlogger.GetLogger(ctx).Error("Error on put cache entry", "key", key, "error", err)
		return fmt.Errorf("failed to put cache entry %s: %w", key.String(), err)
	}

	return nil
}

func (r *MongoStore) liveFilter(key memo.Key) bson.D {
	return bson.D{
		{Key: "_id", Value: key.String()},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: r.now().UTC()}}},
	}
}
