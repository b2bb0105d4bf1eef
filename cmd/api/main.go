package main

import (
	"context"
	"flag"
	"log"

	"github.com/IsaacDSC/cachefn/cmd/setup"
	"github.com/IsaacDSC/cachefn/internal/cfg"
	"github.com/IsaacDSC/cachefn/internal/report"
)

// go run ./cmd/api
// go run ./cmd/api --sales=50000 --latency=200ms
func main() {
	sales := flag.Int("sales", 10_000, "number of generated sales")
	latency := flag.Duration("latency", 0, "simulated latency of the sales source")
	seed := flag.Int64("seed", 42, "seed for generated sales")
	flag.Parse()

	conf := cfg.Get()
	setup.NewLogger(conf.Log)

	source := report.NewFakeSource(*seed, *sales, 2020, 2025).WithDelay(*latency)

	server, backend, err := setup.StartAPI(context.Background(), conf, source)
	if err != nil {
		log.Fatalf("failed to start api: %v", err)
	}

	setup.WaitForShutdown(server, backend, conf.Server.ShutdownTimeout)
}
