package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/bench"
	"github.com/abdul-hamid-achik/restflow/packages/core/runner"
	"github.com/abdul-hamid-achik/restflow/packages/loader"
	"github.com/spf13/cobra"
)

var (
	benchIterationsFlag  int
	benchDurationFlag    string
	benchRateFlag        float64
	benchConcurrencyFlag int
	benchTimeoutFlag     string
	benchInsecureFlag    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench <file>",
	Short: "Repeatedly run a testset and report latency percentiles",
	Long: `Repeatedly execute the testsets in a file to measure latency under
load. Each worker runs the testset with its own isolated context.

Examples:
  restflow bench api.yml --iterations 500 --concurrency 10
  restflow bench api.yml --duration 1m --rate 50`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

func init() {
	benchCmd.Flags().IntVarP(&benchIterationsFlag, "iterations", "n", 0, "Total testset executions (default 100 when no duration given)")
	benchCmd.Flags().StringVarP(&benchDurationFlag, "duration", "d", "", "Run for a fixed duration (e.g., 30s, 5m)")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 0, "Target testset executions per second (0 = unlimited)")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", getEnvInt("RESTFLOW_CONCURRENCY", 5), "Number of concurrent workers (env: RESTFLOW_CONCURRENCY)")
	benchCmd.Flags().StringVar(&benchTimeoutFlag, "timeout", "30s", "Request timeout")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	testsets, err := loader.LoadFile(args[0])
	if err != nil {
		return err
	}
	if len(testsets) == 0 {
		return fmt.Errorf("%s: no testsets", args[0])
	}

	var duration time.Duration
	if benchDurationFlag != "" {
		duration, err = time.ParseDuration(benchDurationFlag)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", benchDurationFlag, err)
		}
	}
	timeout, err := time.ParseDuration(benchTimeoutFlag)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", benchTimeoutFlag, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, ts := range testsets {
		b := bench.New(&bench.Config{
			Iterations:  benchIterationsFlag,
			Duration:    duration,
			Rate:        benchRateFlag,
			Concurrency: benchConcurrencyFlag,
			Runner: runner.Config{
				Timeout:        timeout,
				FollowRedirect: true,
				ValidateSSL:    !benchInsecureFlag,
			},
		})

		summary, err := b.Run(ctx, ts)
		if err != nil {
			return err
		}

		name := ts.Name
		if name == "" {
			name = "(unnamed testset)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nTestset: %s\n", name)
		fmt.Fprintf(cmd.OutOrStdout(), "  requests: %d (%.1f/s), success: %d, failed: %d, errors: %d\n",
			summary.Total, summary.RPS, summary.Success, summary.Failed, summary.Errors)
		fmt.Fprintf(cmd.OutOrStdout(), "  latency: p50=%s p95=%s p99=%s max=%s\n",
			summary.P50, summary.P95, summary.P99, summary.Max)
		for _, c := range summary.Cases {
			fmt.Fprintf(cmd.OutOrStdout(), "    %-30s p50=%s p95=%s p99=%s\n", c.Name, c.P50, c.P95, c.P99)
		}
	}
	return nil
}
