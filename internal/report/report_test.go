package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IsaacDSC/cachefn/internal/interstore"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingSource struct {
	*MemorySource
	calls int
	err   error
}

func (c *countingSource) Sales(ctx context.Context, from, to time.Time) ([]Sale, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.MemorySource.Sales(ctx, from, to)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSource() *countingSource {
	return &countingSource{MemorySource: NewMemorySource([]Sale{
		{ID: uuid.New(), Region: "eu", Amount: 200, At: date(2024, time.January, 10)},
		{ID: uuid.New(), Region: "na", Amount: 300, At: date(2024, time.February, 3)},
		{ID: uuid.New(), Region: "eu", Amount: 50, At: date(2024, time.June, 1)},
		{ID: uuid.New(), Region: "apac", Amount: 1000, At: date(2023, time.December, 31)},
	})}
}

func TestReport_Total(t *testing.T) {
	ctx := context.Background()
	source := newSource()
	store := interstore.NewMemStore()
	r := New(source, memo.WithStore(store))

	total, err := r.Total(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(550), total)
	assert.Equal(t, 1, source.calls)

	b, err := store.Get(ctx, memo.Key("74a3102744a392f3ac5a4573803b91d0"))
	require.NoError(t, err)
	assert.Equal(t, "550", string(b))

	total, err = r.Total(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(550), total)
	assert.Equal(t, 1, source.calls, "hit must not reach the source")
}

func TestReport_TotalStoredWithTableTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := memo.NewMockStore(ctrl)
	key := memo.Key("74a3102744a392f3ac5a4573803b91d0")

	gomock.InOrder(
		store.EXPECT().Has(gomock.Any(), key).Return(false, nil),
		store.EXPECT().Put(gomock.Any(), key, []byte("550"), 30*time.Minute).Return(nil),
	)

	r := New(newSource(), memo.WithStore(store))
	v, err := r.Invoke(context.Background(), "_total", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(550), v)
}

func TestReport_RegionsUseDefaultTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := memo.NewMockStore(ctrl)
	key := memo.Key("2fab5dcf5fdee88b9329bc891786dd13")

	store.EXPECT().Has(gomock.Any(), key).Return(false, nil)
	store.EXPECT().Put(gomock.Any(), key, []byte(`["apac","eu","na"]`), 66*time.Second).Return(nil)

	r := New(newSource(), memo.WithStore(store))
	regions, err := r.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"apac", "eu", "na"}, regions)
}

func TestReport_Breakdown(t *testing.T) {
	ctx := context.Background()
	source := newSource()
	r := New(source, memo.WithStore(interstore.NewMemStore()))

	p, err := ParsePeriod("2024-01-01", "2024-03-01")
	require.NoError(t, err)

	got, err := r.Breakdown(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"eu": 200, "na": 300}, got)

	// Same dates at another clock time hit the same entry.
	same := Period{From: p.From.Add(5 * time.Hour), To: p.To.Add(time.Minute)}
	got, err = r.Breakdown(ctx, same)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"eu": 200, "na": 300}, got)
	assert.Equal(t, 1, source.calls)
}

func TestReport_EmptyResultsNotCached(t *testing.T) {
	ctx := context.Background()
	source := newSource()
	store := interstore.NewMemStore()
	r := New(source, memo.WithStore(store))

	for i := 0; i < 2; i++ {
		total, err := r.Total(ctx, 1999)
		require.NoError(t, err)
		assert.Zero(t, total)
	}

	assert.Equal(t, 2, source.calls)
	assert.Zero(t, store.Len())
}

func TestReport_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("source down")
	source := newSource()
	source.err = boom
	store := interstore.NewMemStore()
	r := New(source, memo.WithStore(store))

	_, err := r.Total(context.Background(), 2024)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, memo.ErrBackend)
	assert.Zero(t, store.Len())
}

func TestReport_InvalidPeriod(t *testing.T) {
	r := New(newSource(), memo.WithStore(interstore.NewMemStore()))

	_, err := r.Breakdown(context.Background(), Period{From: date(2024, time.March, 1), To: date(2024, time.January, 1)})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestReport_UnprefixedNameNotFound(t *testing.T) {
	r := New(newSource(), memo.WithStore(interstore.NewMemStore()))

	_, err := r.Invoke(context.Background(), "total", 2024)
	var nf *memo.MethodNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "total", nf.Method)
}

func TestReport_Disabled(t *testing.T) {
	source := newSource()
	r := New(source, memo.WithStore(interstore.NewMemStore()), memo.WithEnabled(func() bool { return false }))

	_, err := r.Total(context.Background(), 2024)
	assert.ErrorIs(t, err, memo.ErrMethodNotFound)
	assert.Zero(t, source.calls)
}

func TestReport_TTLTableOverride(t *testing.T) {
	r := New(newSource(), memo.WithTTLTable(memo.TTLTable{"total": 2}))

	assert.Equal(t, 2*time.Minute, r.TTL("total"))
	assert.Equal(t, 66*time.Second, r.TTL("breakdown"))
}

func TestPeriod(t *testing.T) {
	t.Run("canonical form uses dates only", func(t *testing.T) {
		p := Period{From: time.Date(2024, 1, 1, 13, 4, 0, 0, time.UTC), To: date(2024, time.March, 1)}
		b, err := json.Marshal(p.Canonical())
		require.NoError(t, err)
		assert.JSONEq(t, `{"from":"2024-01-01","to":"2024-03-01"}`, string(b))
	})

	t.Run("parse rejects bad input", func(t *testing.T) {
		for _, tc := range []struct{ from, to string }{
			{"2024-13-01", "2024-02-01"},
			{"2024-01-01", "tomorrow"},
			{"2024-02-01", "2024-02-01"},
		} {
			_, err := ParsePeriod(tc.from, tc.to)
			assert.ErrorIs(t, err, ErrInvalidPeriod, "%s..%s", tc.from, tc.to)
		}
	})

	t.Run("keys differ by period", func(t *testing.T) {
		a, err := memo.NewKey(Tag, "_breakdown", Period{From: date(2024, 1, 1), To: date(2024, 2, 1)})
		require.NoError(t, err)
		b, err := memo.NewKey(Tag, "_breakdown", Period{From: date(2024, 1, 1), To: date(2024, 3, 1)})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestNewFakeSource(t *testing.T) {
	source := NewFakeSource(42, 200, 2023, 2024)

	sales, err := source.Sales(context.Background(), date(2023, 1, 1), date(2025, 1, 1))
	require.NoError(t, err)
	assert.Len(t, sales, 200)

	for _, s := range sales {
		assert.NotEqual(t, uuid.Nil, s.ID)
		assert.Contains(t, defaultRegions, s.Region)
		assert.Positive(t, s.Amount)
	}
}

func TestMemorySource_DelayHonoursContext(t *testing.T) {
	source := NewMemorySource(nil).WithDelay(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Sales(ctx, time.Time{}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
