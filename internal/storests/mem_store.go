package storests

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/IsaacDSC/cachefn/pkg/memo"
)

const defaultMaxEvents = 100_000

// MemStore keeps dispatch events in process memory for deployments without
// Redis. Events are kept in time order; those older than the retention
// window or beyond the newest maxEvents are dropped on write.
type MemStore struct {
	mu        sync.Mutex
	metrics   domain.Metrics
	retention time.Duration
	maxEvents int
	now       func() time.Time
}

var _ memo.Observer = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{retention: defaultRetention, maxEvents: defaultMaxEvents, now: time.Now}
}

// WithMaxEvents caps the number of retained events.
func (s *MemStore) WithMaxEvents(n int) *MemStore {
	s.maxEvents = n
	return s
}

func (s *MemStore) Observe(ctx context.Context, event memo.Event) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	// Concurrent dispatches can report slightly out of order.
	n := len(s.metrics)
	if n == 0 || !at.Before(s.metrics[n-1].TimeEnded) {
		s.metrics = append(s.metrics, metric)
	} else {
		i := sort.Search(n, func(i int) bool { return s.metrics[i].TimeEnded.After(at) })
		s.metrics = slices.Insert(s.metrics, i, metric)
	}

	cutoff := s.now().Add(-s.retention)
	expired := sort.Search(len(s.metrics), func(i int) bool { return s.metrics[i].TimeEnded.After(cutoff) })
	if over := len(s.metrics) - s.maxEvents; s.maxEvents > 0 && over > expired {
		expired = over
	}
	if expired > 0 {
		s.metrics = s.metrics[expired:]
	}

	return nil
}

func (s *MemStore) GetAll(ctx context.Context) (domain.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.Metrics, len(s.metrics))
	copy(out, s.metrics)
	return out, nil
}
