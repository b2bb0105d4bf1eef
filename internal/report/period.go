package report

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidPeriod = errors.New("invalid period")

// Period is a half-open [From, To) date range.
type Period struct {
	From time.Time
	To   time.Time
}

func ParsePeriod(from, to string) (Period, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return Period{}, fmt.Errorf("%w: from: %v", ErrInvalidPeriod, err)
	}

	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return Period{}, fmt.Errorf("%w: to: %v", ErrInvalidPeriod, err)
	}

	p := Period{From: f, To: t}
	return p, p.Validate()
}

func (p Period) Validate() error {
	if !p.From.Before(p.To) {
		return fmt.Errorf("%w: %s is not before %s", ErrInvalidPeriod, p.From.Format(dateLayout), p.To.Format(dateLayout))
	}
	return nil
}

// Canonical implements memo.Serializable. Only the calendar dates take part
// in the cache key.
func (p Period) Canonical() any {
	return map[string]string{
		"from": p.From.UTC().Format(dateLayout),
		"to":   p.To.UTC().Format(dateLayout),
	}
}

func (p Period) String() string {
	return p.From.Format(dateLayout) + ".." + p.To.Format(dateLayout)
}
