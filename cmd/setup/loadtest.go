package setup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

type LoadTest struct {
	BaseURL  string
	Rate     int
	Duration time.Duration
	Years    []int
}

// ReportTargeter spreads requests over the report endpoints. Years and
// periods repeat so most requests should be served from the cache.
func ReportTargeter(baseURL string, years []int, faker *gofakeit.Faker) vegeta.Targeter {
	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}

		year := years[faker.Number(0, len(years)-1)]

		switch faker.Number(0, 2) {
		case 0:
			tgt.URL = fmt.Sprintf("%s/reports/total?year=%d", baseURL, year)
		case 1:
			month := faker.Number(1, 11)
			tgt.URL = fmt.Sprintf("%s/reports/breakdown?from=%d-%02d-01&to=%d-%02d-01", baseURL, year, month, year, month+1)
		default:
			tgt.URL = baseURL + "/reports/regions"
		}

		tgt.Method = http.MethodGet
		tgt.Header = http.Header{}
		tgt.Header.Set(requestIDHeader, uuid.New().String())
		tgt.Header.Set("User-Agent", faker.UserAgent())

		return nil
	}
}

func (lt LoadTest) Run(out io.Writer) vegeta.Metrics {
	faker := gofakeit.New(time.Now().UnixNano())
	rate := vegeta.Rate{Freq: lt.Rate, Per: time.Second}
	attacker := vegeta.NewAttacker()

	var metrics vegeta.Metrics
	for res := range attacker.Attack(ReportTargeter(lt.BaseURL, lt.Years, faker), rate, lt.Duration, "cachefn") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Fprintf(out, "99th percentile: %s\n", metrics.Latencies.P99)
	fmt.Fprintf(out, "95th percentile: %s\n", metrics.Latencies.P95)
	fmt.Fprintf(out, "Mean: %s\n", metrics.Latencies.Mean)
	fmt.Fprintf(out, "Max: %s\n", metrics.Latencies.Max)
	fmt.Fprintf(out, "Requests per second: %.2f\n", metrics.Rate)
	fmt.Fprintf(out, "Success ratio: %.2f%%\n", metrics.Success*100)
	fmt.Fprintf(out, "Status codes: %v\n", metrics.StatusCodes)
	fmt.Fprintf(out, "Total requests: %d\n", metrics.Requests)

	fmt.Fprintln(out, "\n=== Detailed report ===")
	vegeta.NewTextReporter(&metrics).Report(out)

	return metrics
}

// PrintInsights reads /insights from the API and prints the cache summary.
func (lt LoadTest) PrintInsights(ctx context.Context, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lt.BaseURL+"/insights", nil)
	if err != nil {
		return fmt.Errorf("failed to build insights request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch insights: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read insights: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("insights returned %d: %s", resp.StatusCode, gjson.GetBytes(body, "error").String())
	}

	summary := gjson.GetManyBytes(body, "total_calls", "total_hits", "total_stored", "total_skipped", "hit_ratio")

	fmt.Fprintln(out, "\n=== Cache insights ===")
	fmt.Fprintf(out, "Calls: %d\n", summary[0].Int())
	fmt.Fprintf(out, "Hits: %d\n", summary[1].Int())
	fmt.Fprintf(out, "Stored: %d\n", summary[2].Int())
	fmt.Fprintf(out, "Skipped: %d\n", summary[3].Int())
	fmt.Fprintf(out, "Hit ratio: %s\n", summary[4].String())

	gjson.GetBytes(body, "hits_by_method").ForEach(func(method, hits gjson.Result) bool {
		fmt.Fprintf(out, "  %s: %d hits\n", method.String(), hits.Int())
		return true
	})

	return nil
}
