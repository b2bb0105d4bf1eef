package setup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/IsaacDSC/cachefn/internal/cfg"
	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/IsaacDSC/cachefn/internal/interstore"
	"github.com/IsaacDSC/cachefn/internal/report"
	"github.com/IsaacDSC/cachefn/internal/storests"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func testConfig() cfg.Config {
	return cfg.Config{
		Cache: cfg.Cache{
			Enabled:    true,
			Driver:     cfg.DriverMemory,
			Prefix:     "cachefn",
			DefaultTTL: 1.1,
			TTLUnit:    time.Minute,
		},
		Log: cfg.Log{Level: "error", JSON: true},
	}
}

func TestReportOptions(t *testing.T) {
	c := testConfig().Cache
	c.FunctionTTL = cfg.FunctionTTL{"breakdown": 12, "regions": 0.5}
	c.TTLUnit = time.Second

	d := memo.New(report.Tag, ReportOptions(c, nil)...)

	assert.Equal(t, 30*time.Second, d.TTL("total"))
	assert.Equal(t, 12*time.Second, d.TTL("breakdown"))
	assert.Equal(t, 500*time.Millisecond, d.TTL("regions"))
	assert.Equal(t, 1100*time.Millisecond, d.TTL("unknown"))
}

func TestNewBackend_Memory(t *testing.T) {
	b, err := NewBackend(context.Background(), testConfig())
	require.NoError(t, err)
	defer b.Close(context.Background())

	assert.IsType(t, &interstore.MemStore{}, b.Store)
	assert.IsType(t, &storests.MemStore{}, b.Insights)
}

func TestRoutes_CachesAcrossRequests(t *testing.T) {
	c := testConfig()
	cfg.SetConfig(c)
	t.Cleanup(cfg.Reset)

	b, err := NewBackend(context.Background(), c)
	require.NoError(t, err)
	defer b.Close(context.Background())

	source := report.NewFakeSource(7, 500, 2023, 2024)
	reports := report.New(source, append(ReportOptions(c.Cache, b.Insights), memo.WithStore(b.Store))...)
	handler := Routes(reports, b.Insights)

	get := func(target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		return rr
	}

	first := get("/reports/total?year=2024")
	require.Equal(t, http.StatusOK, first.Code)
	second := get("/reports/total?year=2024")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	require.Equal(t, http.StatusOK, get("/health").Code)

	rr := get("/insights")
	require.Equal(t, http.StatusOK, rr.Code)

	var insights domain.Insights
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &insights))
	assert.Equal(t, int64(2), insights.TotalCalls)
	assert.Equal(t, int64(1), insights.TotalHits)
	assert.Equal(t, int64(1), insights.TotalStored)
	assert.Equal(t, "50.00%", insights.HitRatio)
}

func TestRoutes_CacheDisabledAtRuntime(t *testing.T) {
	c := testConfig()
	c.Cache.Enabled = false
	cfg.SetConfig(c)
	t.Cleanup(cfg.Reset)

	reports := report.New(report.NewFakeSource(7, 10, 2024, 2024), append(ReportOptions(c.Cache, nil), memo.WithStore(interstore.NewMemStore()))...)

	rr := httptest.NewRecorder()
	Routes(reports, storests.NewMemStore()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/regions", nil))

	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRoutes_CORS(t *testing.T) {
	c := testConfig()
	cfg.SetConfig(c)
	t.Cleanup(cfg.Reset)

	insights := storests.NewMemStore()
	reports := report.New(report.NewFakeSource(7, 10, 2024, 2024), append(ReportOptions(c.Cache, insights), memo.WithStore(interstore.NewMemStore()))...)
	handler := Routes(reports, insights)

	t.Run("Given a preflight to a report route, when served, then it is answered without dispatching", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/reports/total", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)

		metrics, err := insights.GetAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, metrics)
	})

	t.Run("Given a report request with an origin, when served, then the response carries cors headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports/total?year=2024", nil)
		req.Header.Set("Origin", "http://localhost:3000")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})
}

func TestReportTargeter(t *testing.T) {
	targeter := ReportTargeter("http://localhost:8080", []int{2023, 2024}, gofakeit.New(1))

	for i := 0; i < 50; i++ {
		var tgt vegeta.Target
		require.NoError(t, targeter(&tgt))

		assert.Equal(t, http.MethodGet, tgt.Method)
		assert.Len(t, tgt.Header.Get("X-Request-ID"), 36)
		assert.NotEmpty(t, tgt.Header.Get("User-Agent"))

		u, err := url.Parse(tgt.URL)
		require.NoError(t, err)
		assert.Contains(t, []string{"/reports/total", "/reports/breakdown", "/reports/regions"}, u.Path)

		if u.Path == "/reports/breakdown" {
			_, err := report.ParsePeriod(u.Query().Get("from"), u.Query().Get("to"))
			assert.NoError(t, err)
		}
	}

	assert.ErrorIs(t, targeter(nil), vegeta.ErrNilTarget)
}

func TestLoadTest_PrintInsights(t *testing.T) {
	c := testConfig()
	cfg.SetConfig(c)
	t.Cleanup(cfg.Reset)

	b, err := NewBackend(context.Background(), c)
	require.NoError(t, err)
	defer b.Close(context.Background())

	reports := report.New(report.NewFakeSource(3, 100, 2024, 2024), append(ReportOptions(c.Cache, b.Insights), memo.WithStore(b.Store))...)
	srv := httptest.NewServer(Routes(reports, b.Insights))
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/reports/total?year=2024")
		require.NoError(t, err)
		resp.Body.Close()
	}

	var out bytes.Buffer
	require.NoError(t, LoadTest{BaseURL: srv.URL}.PrintInsights(context.Background(), &out))

	assert.Contains(t, out.String(), "Calls: 3\n")
	assert.Contains(t, out.String(), "Hits: 2\n")
	assert.Contains(t, out.String(), "Hit ratio: 66.67%\n")
	assert.Contains(t, out.String(), "Report._total: 2 hits\n")
}

func TestLoadTest_PrintInsightsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"redis down"}`))
	}))
	defer srv.Close()

	err := LoadTest{BaseURL: srv.URL}.PrintInsights(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}
