package report

import (
	"context"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var defaultRegions = []string{"eu", "latam", "na", "apac"}

type Sale struct {
	ID     uuid.UUID `json:"id"`
	Region string    `json:"region"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

// MemorySource serves sales from a slice. It stands in for a database.
type MemorySource struct {
	mu    sync.RWMutex
	sales []Sale
	delay time.Duration
}

func NewMemorySource(sales []Sale) *MemorySource {
	return &MemorySource{sales: sales}
}

// NewFakeSource generates n sales spread over the years [fromYear, toYear].
func NewFakeSource(seed int64, n int, fromYear, toYear int) *MemorySource {
	faker := gofakeit.New(seed)
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)

	sales := make([]Sale, 0, n)
	for i := 0; i < n; i++ {
		sales = append(sales, Sale{
			ID:     uuid.New(),
			Region: defaultRegions[faker.Number(0, len(defaultRegions)-1)],
			Amount: int64(faker.Number(1, 10_000)),
			At:     faker.DateRange(start, end).UTC(),
		})
	}

	return NewMemorySource(sales)
}

// WithDelay simulates a slow backend on every Sales call.
func (s *MemorySource) WithDelay(d time.Duration) *MemorySource {
	s.delay = d
	return s
}

func (s *MemorySource) Sales(ctx context.Context, from, to time.Time) ([]Sale, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Sale
	for _, sale := range s.sales {
		if !sale.At.Before(from) && sale.At.Before(to) {
			out = append(out, sale)
		}
	}

	return out, nil
}

func (s *MemorySource) Add(sale Sale) {
	s.mu.Lock()
	s.sales = append(s.sales, sale)
	s.mu.Unlock()
}
