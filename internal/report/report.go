package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/memo"
)

const Tag = "Report"

// DefaultTTLTable caches yearly totals longer than period breakdowns.
var DefaultTTLTable = memo.TTLTable{
	"total":     30,
	"breakdown": 5,
}

type Source interface {
	Sales(ctx context.Context, from, to time.Time) ([]Sale, error)
}

// Report aggregates sales. Its underlying methods are reachable through the
// cached names _total, _breakdown and _regions.
type Report struct {
	*memo.Dispatcher
	source Source
}

func New(source Source, opts ...memo.Option) *Report {
	r := &Report{source: source}

	opts = append([]memo.Option{memo.WithTTLTable(DefaultTTLTable)}, opts...)
	r.Dispatcher = memo.New(Tag, opts...)

	memo.RegisterFunc(r.Dispatcher, "total", memo.Method1(r.total))
	memo.RegisterFunc(r.Dispatcher, "breakdown", memo.Method1(r.breakdown))
	memo.RegisterFunc(r.Dispatcher, "regions", memo.Method0(r.regions))

	return r
}

// Total is the cached yearly revenue.
func (r *Report) Total(ctx context.Context, year int) (int64, error) {
	return memo.Call[int64](ctx, r, "_total", year)
}

// Breakdown is the cached revenue per region for p.
func (r *Report) Breakdown(ctx context.Context, p Period) (map[string]int64, error) {
	return memo.Call[map[string]int64](ctx, r, "_breakdown", p)
}

func (r *Report) Regions(ctx context.Context) ([]string, error) {
	return memo.Call[[]string](ctx, r, "_regions")
}

func (r *Report) total(ctx context.Context, year int) (int64, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	sales, err := r.source.Sales(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to load sales for %d: %w", year, err)
	}

	var total int64
	for _, s := range sales {
		total += s.Amount
	}

	return total, nil
}

func (r *Report) breakdown(ctx context.Context, p Period) (map[string]int64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sales, err := r.source.Sales(ctx, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales for %s: %w", p, err)
	}

	out := make(map[string]int64)
	for _, s := range sales {
		out[s.Region] += s.Amount
	}

	return out, nil
}

func (r *Report) regions(ctx context.Context) ([]string, error) {
	sales, err := r.source.Sales(ctx, time.Time{}, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, s := range sales {
		if _, ok := seen[s.Region]; ok {
			continue
		}
		seen[s.Region] = struct{}{}
		out = append(out, s.Region)
	}
	sort.Strings(out)

	return out, nil
}
