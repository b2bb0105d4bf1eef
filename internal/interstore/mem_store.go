package interstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/memo"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemStore keeps entries in process memory. Expired entries are dropped on
// access; there is no capacity limit.
type MemStore struct {
	mu      sync.RWMutex
	entries map[memo.Key]memEntry
	now     func() time.Time
	tag     string
}

var _ memo.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[memo.Key]memEntry),
		now:     time.Now,
		tag:     "mem_store",
	}
}

func (ms *MemStore) Has(ctx context.Context, key memo.Key) (bool, error) {
	_, ok := ms.load(ctx, key)
	return ok, nil
}

func (ms *MemStore) Get(ctx context.Context, key memo.Key) ([]byte, error) {
	e, ok := ms.load(ctx, key)
	if !ok {
		return nil, memo.ErrCacheMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (ms *MemStore) Put(ctx context.Context, key memo.Key, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("error setting value for key %s: ttl must be positive, got %s", key.String(), ttl)
	}

	v := make([]byte, len(value))
	copy(v, value)

	ms.mu.Lock()
	ms.entries[key] = memEntry{value: v, expiresAt: ms.now().Add(ttl)}
	ms.mu.Unlock()

	return nil
}

// Len returns the number of live entries.
func (ms *MemStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	now := ms.now()
	n := 0
	for _, e := range ms.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (ms *MemStore) load(ctx context.Context, key memo.Key) (memEntry, bool) {
	ms.mu.RLock()
	e, ok := ms.entries[key]
	ms.mu.RUnlock()
	if !ok {
		return memEntry{}, false
	}

	if ms.now().Before(e.expiresAt) {
		return e, true
	}

	ms.mu.Lock()
	if cur, ok := ms.entries[key]; ok && !ms.now().Before(cur.expiresAt) {
		delete(ms.entries, key)
	}
	ms.mu.Unlock()

	ctxlogger.GetLogger(ctx).Debug("Expired entry removed", "key", key, "tag", ms.tag)
	return memEntry{}, false
}
