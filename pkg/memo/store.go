package memo

import (
	"context"
	"sync"
	"time"
)

// Key represents a cache key as a string.
type Key string

// String returns the string representation of the Key.
func (k Key) String() string {
	return string(k)
}

// Store is the external key-value cache the dispatcher reads and populates.
// Implementations own expiry; Get returns ErrCacheMiss when the entry is gone.
type Store interface {
	Has(ctx context.Context, key Key) (bool, error)
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, value []byte, ttl time.Duration) error
}

type Outcome string

const (
	OutcomeHit     Outcome = "hit"
	OutcomeStored  Outcome = "stored"
	OutcomeSkipped Outcome = "skipped"
)

// Event describes a single cached dispatch.
type Event struct {
	Tag      string        `json:"tag"`
	Method   string        `json:"method"`
	Key      Key           `json:"key"`
	Outcome  Outcome       `json:"outcome"`
	TTL      time.Duration `json:"ttl"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// Observer receives dispatch events. Errors are logged and never fail the call.
type Observer interface {
	Observe(ctx context.Context, event Event) error
}

var (
	defaultStore Store
	defaultMu    sync.RWMutex
)

// SetDefaultStore installs the process-wide store resolved by dispatchers
// that were built without WithStore or WithStoreFunc.
func SetDefaultStore(s Store) {
	defaultMu.Lock()
	defaultStore = s
	defaultMu.Unlock()
}

// DefaultStore returns the process-wide store or ErrNoStore.
func DefaultStore() (Store, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultStore == nil {
		return nil, ErrNoStore
	}
	return defaultStore, nil
}
