package interstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	_ "github.com/lib/pq"
)

const createFunctionCacheTable = `
	CREATE TABLE IF NOT EXISTS function_cache (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS function_cache_expires_at_idx ON function_cache (expires_at);
`

// PostgresStore keeps entries in the function_cache table. Postgres has no
// native expiry, so reads filter on expires_at and Purge deletes stale rows.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ memo.Store = (*PostgresStore)(nil)

// NewPostgresStoreFromDSN creates a new PostgresStore from a database DSN string
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: time.Now,
	}
}

// Migrate creates the function_cache table when it does not exist.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFunctionCacheTable); err != nil {
		return fmt.Errorf("failed to migrate function_cache: %w", err)
	}

	return nil
}

func (r *PostgresStore) Has(ctx context.Context, key memo.Key) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM function_cache WHERE key = $1 AND expires_at > $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, key.String(), r.now().UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check cache entry %s: %w", key.String(), err)
	}

	return exists, nil
}

func (r *PostgresStore) Get(ctx context.Context, key memo.Key) ([]byte, error) {
	query := `SELECT value FROM function_cache WHERE key = $1 AND expires_at > $2`

	var value []byte
	if err := r.db.QueryRowContext(ctx, query, key.String(), r.now().UTC()).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, memo.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key.String(), err)
	}

	return value, nil
}

func (r *PostgresStore) Put(ctx context.Context, key memo.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("failed to put cache entry %s: ttl must be positive, got %s", key.String(), ttl)
	}

	query := `
		INSERT INTO function_cache (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
	`

	now := r.now().UTC()
	if _, err := r.db.ExecContext(ctx, query, key.String(), value, now.Add(ttl), now); err != nil {
		ctxlogger.GetLogger(ctx).Error("Error on put cache entry", "key", key, "error", err)
		return fmt.Errorf("failed to put cache entry %s: %w", key.String(), err)
	}

	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (r *PostgresStore) Purge(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM function_cache WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge function_cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}

	return n, nil
}

func (r *PostgresStore) Close() error {
	return r.db.Close()
}
