package main

import (
	"context"
	"os"

	"github.com/IsaacDSC/cachefn/cmd/setup"
	"github.com/IsaacDSC/cachefn/pkg/logs"
)

// go run . api
// go run . loadtest --duration=10s
// go run . key _total 2024
func main() {
	if err := setup.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logs.Error("command failed", "error", err)
		os.Exit(1)
	}
}
