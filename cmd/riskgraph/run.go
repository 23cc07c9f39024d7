package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-riskgraph/pkg/health"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/maintenance"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/pubsub"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run maintenance cycles on a schedule and serve /metrics and /health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.Maintenance.Interval = interval
			}
			if metricsAddr != "" {
				cfg.Metrics.Address = metricsAddr
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := g.snapshotProvider(ctx)
			if err != nil {
				return err
			}
			store, closeStore, err := g.labelStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			reg := metrics.NewRegistry()
			broker := pubsub.NewBroker[*maintenance.CycleReport](pubsub.DefaultBuffer)
			defer broker.Shutdown()

			controller, err := maintenance.NewController(provider, store, cfg,
				maintenance.WithLogger(logger),
				maintenance.WithMetrics(reg),
				maintenance.WithBroker(broker),
			)
			if err != nil {
				return configError{err}
			}

			checker := newHealthChecker(controller, store, 3*cfg.Maintenance.Interval)

			mux := http.NewServeMux()
			mux.Handle("/health", checker.HTTPHandler())
			mux.Handle("/health/ready", checker.ReadinessHandler())
			mux.Handle("/health/live", checker.LivenessHandler())
			if cfg.Metrics.Enabled {
				mux.Handle("/metrics", reg.Handler())
			}

			server := &http.Server{
				Addr:              cfg.Metrics.Address,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				logger.Info("HTTP server listening", logging.String("address", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", logging.Error(err))
					stop()
				}
			}()

			go refreshSystemMetrics(ctx, reg)
			go logFailedCycles(ctx, broker, logger)

			maintenance.NewScheduler(controller, cfg.Maintenance.Interval).Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Override maintenance.interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Override metrics.address")
	return cmd
}

func newHealthChecker(c *maintenance.Controller, store any, staleAfter time.Duration) *health.HealthChecker {
	checker := health.NewHealthChecker()

	cycle := health.CycleCheck(c.CycleState, staleAfter)
	checker.RegisterCheck("maintenance_cycle", cycle)
	checker.RegisterReadinessCheck("maintenance_cycle", cycle)
	checker.RegisterLivenessCheck("process", health.SimpleCheck("process"))
	checker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		check := health.LabelStoreCheck(pinger.Ping, 2*time.Second)
		checker.RegisterCheck("label_store", check)
		checker.RegisterReadinessCheck("label_store", check)
	}
	return checker
}

func refreshSystemMetrics(ctx context.Context, reg *metrics.Registry) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		reg.UpdateSystemMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// logFailedCycles surfaces unresolved nodes of failed cycles for operators.
func logFailedCycles(ctx context.Context, broker *pubsub.Broker[*maintenance.CycleReport], logger logging.Logger) {
	sub, err := broker.Subscribe(ctx, pubsub.TopicCycleFailed)
	if err != nil {
		return
	}
	for report := range sub.Channel() {
		if len(report.Unresolved) > 0 {
			logger.Warn("Nodes left with stale labels",
				logging.CycleID(report.ID),
				logging.Strings("nodes", report.Unresolved))
		}
	}
}
