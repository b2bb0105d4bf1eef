package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IsaacDSC/cachefn/internal/app/health"
	"github.com/IsaacDSC/cachefn/internal/app/insightsapp"
	"github.com/IsaacDSC/cachefn/internal/app/reportapp"
	"github.com/IsaacDSC/cachefn/internal/cfg"
	"github.com/IsaacDSC/cachefn/internal/report"
	"github.com/IsaacDSC/cachefn/pkg/httpadapter"
	"github.com/IsaacDSC/cachefn/pkg/logs"
	"github.com/IsaacDSC/cachefn/pkg/memo"
)

func NewLogger(c cfg.Log) *logs.Logger {
	logger := logs.New(
		logs.WithLevel(logs.ParseLevel(c.Level)),
		logs.WithJSONFormat(c.JSON),
	)
	logs.SetDefault(logger)
	return logger
}

// ReportOptions builds the dispatcher options for the report host. Entries of
// CACHE_FUNCTION_TTL override the built-in TTL table.
func ReportOptions(c cfg.Cache, observer memo.Observer) []memo.Option {
	table := make(memo.TTLTable, len(report.DefaultTTLTable)+len(c.FunctionTTL))
	for name, ttl := range report.DefaultTTLTable {
		table[name] = ttl
	}
	for name, ttl := range c.FunctionTTL {
		table[name] = ttl
	}

	opts := []memo.Option{
		memo.WithEnabled(func() bool { return cfg.Get().Cache.Enabled }),
		memo.WithTTLTable(table),
		memo.WithDefaultTTL(c.DefaultTTL),
		memo.WithTTLUnit(c.TTLUnit),
	}

	if observer != nil {
		opts = append(opts, memo.WithObserver(observer))
	}

	return opts
}

func Routes(reports reportapp.Reports, insights insightsapp.InsightsStore) http.Handler {
	mux := http.NewServeMux()

	routes := []httpadapter.HttpHandle{
		health.GetHealthCheckHandler(),
		insightsapp.GetInsightsHandle(insights),
		reportapp.GetTotalHandle(reports),
		reportapp.GetBreakdownHandle(reports),
		reportapp.GetRegionsHandle(reports),
	}

	for _, route := range routes {
		mux.HandleFunc(route.Path, route.Handler)
	}

	return CORSMiddleware(LoggerMiddleware(mux))
}

// StartAPI wires the backend, the report host and the HTTP server, and
// returns once the server is listening in the background.
func StartAPI(ctx context.Context, c cfg.Config, source report.Source) (*http.Server, *Backend, error) {
	backend, err := NewBackend(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	memo.SetDefaultStore(backend.Store)
	reports := report.New(source, ReportOptions(c.Cache, backend.Insights)...)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Server.Port),
		Handler:           Routes(reports, backend.Insights),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	logs.Info("Starting API server", "port", c.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Error("API server error", "error", err)
		}
	}()

	return server, backend, nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM and then drains the server
// within timeout.
func WaitForShutdown(server *http.Server, backend *Backend, timeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logs.Info("Shutting down servers...")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logs.Error("API server shutdown error", "error", err)
	}
	logs.Info("API server stopped", "elapsed_time", time.Since(start))

	if err := backend.Close(ctx); err != nil {
		logs.Error("failed to close cache backend", "error", err)
	}

	logs.Info("All servers shutdown complete", "elapsed_time", time.Since(start))
}
