package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	OutcomeHit     = "hit"
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
)

// Metric is one cached dispatch as recorded by the insights store.
type Metric struct {
	Tag            string    `json:"tag"`
	Method         string    `json:"method"`
	Outcome        string    `json:"outcome"`
	TTLSeconds     float64   `json:"ttl_seconds"`
	TimeDurationMs int64     `json:"time_duration_ms"`
	TimeEnded      time.Time `json:"time_ended"`
}

func (m Metric) Name() string {
	return strings.Join([]string{m.Tag, m.Method}, ".")
}

type Metrics []Metric

// Insights aggregates the metrics in time order. Recorders may hand them over
// grouped by outcome, so a sorted copy feeds the per-minute series.
func (m *Metrics) Insights() Insights {
	insights := NewInsights()
	missDurations := make(map[string][]float64)

	ordered := make(Metrics, len(*m))
	copy(ordered, *m)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeEnded.Before(ordered[j].TimeEnded)
	})

	for _, metric := range ordered {
		dateInMinute := time.Date(metric.TimeEnded.Year(), metric.TimeEnded.Month(), metric.TimeEnded.Day(), metric.TimeEnded.Hour(), metric.TimeEnded.Minute(), 0, 0, time.UTC)
		name := metric.Name()

		insights.TotalCalls++
		insights.TotalSegmentationMethod[name]++
		insights.RpmMethod.add(name, dateInMinute)

		switch metric.Outcome {
		case OutcomeHit:
			insights.TotalHits++
			insights.HitsByMethod[name]++
			continue
		case OutcomeStored:
			insights.TotalStored++
		case OutcomeSkipped:
			insights.TotalSkipped++
		default:
			continue
		}

		missDurations[name] = append(missDurations[name], float64(metric.TimeDurationMs))
	}

	for key, durations := range missDurations {
		p99, _ := percentile(durations, 0.99)
		p75, _ := percentile(durations, 0.75)
		insights.P99Miss[key] = p99
		insights.P75Miss[key] = p75
	}

	insights.HitRatio = ratio(insights.TotalHits, insights.TotalCalls)

	return insights
}

type Insights struct {
	TotalCalls   int64  `json:"total_calls"`
	TotalHits    int64  `json:"total_hits"`
	TotalStored  int64  `json:"total_stored"`
	TotalSkipped int64  `json:"total_skipped"`
	HitRatio     string `json:"hit_ratio"`
	//Segmentation infos
	TotalSegmentationMethod map[string]int64   `json:"total_segmentation_method"`
	HitsByMethod            map[string]int64   `json:"hits_by_method"`
	RpmMethod               RpmMethod          `json:"rpm_method"`
	P99Miss                 map[string]float64 `json:"miss_p99"` //Tag.Method >> underlying call ms
	P75Miss                 map[string]float64 `json:"miss_p75"`
}

func NewInsights() Insights {
	return Insights{
		HitRatio:                ratio(0, 0),
		TotalSegmentationMethod: make(map[string]int64),
		HitsByMethod:            make(map[string]int64),
		RpmMethod:               make(map[string]*RPM),
		P99Miss:                 make(map[string]float64),
		P75Miss:                 make(map[string]float64),
	}
}

type RPM struct {
	Timeseries []time.Time `json:"timeseries"`
	Values     []int64     `json:"values"`
}

type RpmMethod map[string]*RPM

func (rm RpmMethod) add(name string, dateInMinute time.Time) {
	if data, ok := rm[name]; ok {
		lastDateTime := data.Timeseries[len(data.Timeseries)-1]
		if lastDateTime.Equal(dateInMinute) {
			data.Values[len(data.Values)-1]++
			return
		}
		data.Timeseries = append(data.Timeseries, dateInMinute)
		data.Values = append(data.Values, 1)
	} else {
		rm[name] = &RPM{Timeseries: []time.Time{dateInMinute}, Values: []int64{1}}
	}
}

func ratio(part, total int64) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

func percentile(data []float64, p float64) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty array")
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("p must be between 0 and 1")
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	idx := int(math.Ceil(p*n) - 1)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx], nil
}
