package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/todo-1m/todolist/internal/platform/env"
	"github.com/todo-1m/todolist/internal/platform/logging"
)

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(runCtx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := loadConfig{}
	var logLevel string
	cmd := &cobra.Command{
		Use:   "todo-load",
		Short: "Drive concurrent create/update/delete traffic against todo-api",
		Long: `todo-load runs a number of workers that each pick a random action
(list, create, update or delete) at a fixed rate until the duration elapses.
Outcome counters are exposed on the metrics address.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			logger := logging.New(os.Stderr, logLevel, "text", "todo-load")
			return newRunner(cfg, logger).run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "base-url", env.String("LOADGEN_BASE_URL", "http://localhost:8080"), "todo-api base URL")
	flags.IntVar(&cfg.Workers, "workers", env.Int("LOADGEN_WORKERS", 8), "concurrent workers")
	flags.DurationVar(&cfg.Duration, "duration", env.Duration("LOADGEN_DURATION", time.Minute), "how long to run")
	flags.Float64Var(&cfg.Rate, "rate", 2, "actions per worker per second")
	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", env.Duration("LOADGEN_REQUEST_TIMEOUT", 10*time.Second), "per-request timeout")
	flags.DurationVar(&cfg.StartupWait, "startup-wait", env.Duration("LOADGEN_STARTUP_WAIT", 30*time.Second), "how long to wait for /readyz")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", env.String("LOADGEN_METRICS_ADDR", ":9099"), "metrics listen address, empty disables")
	flags.StringVar(&logLevel, "log-level", env.String("TODO_LOG_LEVEL", "info"), "debug, info, warn or error")
	return cmd
}
