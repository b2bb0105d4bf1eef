package setup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IsaacDSC/cachefn/internal/cfg"
	"github.com/IsaacDSC/cachefn/internal/report"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the cachefn command line.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cachefn",
		Short:         "Memoized report service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAPICmd(), newLoadTestCmd(), newKeyCmd())

	return root
}

func newAPICmd() *cobra.Command {
	var (
		sales   int
		seed    int64
		latency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the report API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := cfg.Get()
			NewLogger(conf.Log)

			source := report.NewFakeSource(seed, sales, 2020, 2025).WithDelay(latency)
			server, backend, err := StartAPI(cmd.Context(), conf, source)
			if err != nil {
				return err
			}

			WaitForShutdown(server, backend, conf.Server.ShutdownTimeout)
			return nil
		},
	}

	cmd.Flags().IntVar(&sales, "sales", 10_000, "number of generated sales")
	cmd.Flags().Int64Var(&seed, "seed", 42, "seed for generated sales")
	cmd.Flags().DurationVar(&latency, "latency", 0, "simulated latency of the sales source")

	return cmd
}

func newLoadTestCmd() *cobra.Command {
	lt := LoadTest{Years: []int{2022, 2023, 2024}}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Attack a running API with vegeta",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lt.Run(cmd.OutOrStdout())
			return lt.PrintInsights(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&lt.BaseURL, "url", "http://localhost:8080", "api base url")
	cmd.Flags().IntVar(&lt.Rate, "rate", 50, "requests per second")
	cmd.Flags().DurationVar(&lt.Duration, "duration", 30*time.Second, "attack duration")
	cmd.Flags().IntSliceVar(&lt.Years, "years", lt.Years, "years requested")

	return cmd
}

func newKeyCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "key METHOD [ARG...]",
		Short: "Print the cache key of a call",
		Example: `  cachefn key _total 2024
  cachefn key --tag Report _breakdown '{"from":"2024-01-01","to":"2024-03-01"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				values = append(values, parseArg(a))
			}

			key, err := memo.NewKey(tag, args[0], values...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", report.Tag, "host type tag")

	return cmd
}

// parseArg reads a JSON literal, falling back to the raw string.
func parseArg(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}
