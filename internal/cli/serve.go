package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/illenko/blacklight/internal/api"
	"github.com/illenko/blacklight/internal/api/handler"
	"github.com/illenko/blacklight/internal/collector"
	"github.com/illenko/blacklight/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop and the HTTP API",
	Long: `Refreshes the snapshot on the configured interval, keeps the history in
SQLite and serves the diagnostics over HTTP. Prometheus metrics about
blacklight itself are exposed on /metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	client, promCfg, err := a.prometheusClient(ctx)
	if err != nil {
		return err
	}

	an := a.analyzer()
	telemetry := collector.NewMetrics()

	coll := collector.New(client, collector.Config{
		StatusLimit: promCfg.StatusLimit,
		Analyzer:    an,
		Snapshots:   a.snapshots,
		Metrics:     a.metrics,
		Findings:    a.findings,
		Telemetry:   telemetry,
	})

	if snap, err := a.snapshots.LoadLatest(ctx); err != nil {
		slog.Warn("failed to load last snapshot", "error", err)
	} else {
		coll.Restore(snap)
	}

	sched := scheduler.New(coll, scheduler.Config{
		Interval:  a.cfg.Refresh.Interval,
		Retention: a.cfg.RetentionDuration(),
		DB:        a.db,
	})

	handlers := api.Handlers{
		Health:  handler.NewHealthHandler(a.db, client, coll),
		Refresh: handler.NewRefreshHandler(sched, coll),
		Analysis: handler.NewAnalysisHandler(coll, handler.AnalysisDeps{
			Analyzer:  an,
			Size:      a.sizeCalculator(ctx, client),
			Snapshots: a.snapshots,
			Metrics:   a.metrics,
			Findings:  a.findings,
		}),
		Churn:       handler.NewChurnHandler(client, an),
		Trees:       handler.NewTreesHandler(collector.NewTreeCache(client, coll, telemetry), coll),
		Simulate:    handler.NewSimulateHandler(coll, a.simulations),
		Connections: handler.NewConnectionsHandler(a.connections),
		Remediation: handler.NewRemediationHandler(),
	}

	server := api.NewServer(handlers, api.ServerConfig{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		Router: api.RouterConfig{
			Registry:       telemetry.Registry,
			RequestTimeout: a.cfg.Server.RequestTimeout,
		},
	})

	a.rememberConnection(ctx, promCfg)

	schedDone := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(schedDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sched.Stop()
			<-schedDone
			return err
		}
	}

	slog.Info("shutting down...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	<-schedDone
	return nil
}
