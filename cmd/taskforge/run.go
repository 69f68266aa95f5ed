package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/taskforge/internal/config"
	"github.com/cuemby/taskforge/internal/obslog"
	"github.com/cuemby/taskforge/internal/obsmetrics"
	"github.com/cuemby/taskforge/internal/resultindex"
	"github.com/cuemby/taskforge/pkg/orchestrator"
	"github.com/cuemby/taskforge/pkg/queue"
	"github.com/cuemby/taskforge/pkg/safevcs"
	"github.com/cuemby/taskforge/pkg/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process tasks from the handoff directory",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Bool("once", false, "Process a single pass and exit instead of polling forever")
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9091", "Address to serve Prometheus metrics on")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	once, _ := cmd.Flags().GetBool("once")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	q, err := queue.Open(cfg.HandoffRoot)
	if err != nil {
		return fmt.Errorf("open handoff root: %w", err)
	}

	runner, err := sandbox.NewRunner(cfg.Sandbox.SocketPath)
	if err != nil {
		return fmt.Errorf("connect to sandbox engine: %w", err)
	}
	defer runner.Close()

	idx, err := resultindex.Open(cfg.HandoffRoot)
	if err != nil {
		return fmt.Errorf("open result index: %w", err)
	}
	defer idx.Close()

	repo := safevcs.New(0)
	loop := orchestrator.New(cfg, q, repo, runner, nil, idx)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loop.Preflight(ctx); err != nil {
		return err
	}

	obsmetrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", obsmetrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			obslog.Logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	obslog.Logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

	return loop.Run(ctx, once)
}
