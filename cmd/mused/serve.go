package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/httpapi"
	"github.com/beaconlabs-io/muse-evidence/internal/telemetry"
	"github.com/beaconlabs-io/muse-evidence/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the mused HTTP API server.

Endpoints:
  GET  /health             health check
  GET  /metrics            prometheus metrics
  GET  /api/v1/index       trigger a full indexing run (?clear=true drops first)
  POST /api/v1/retrieve    semantic search over the evidence corpus
  POST /api/v1/match       match evidence to a logic-model edge`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        a.cfg.Observability.EnableTelemetry,
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: version,
		Endpoint:       a.cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	server, err := httpapi.NewServer(a.indexer, a.retriever, a.matcher, a.logger, httpapi.Config{
		Port: a.cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	if a.cfg.Evidence.Watch {
		w, err := watcher.New(a.cfg.Evidence.Dir, a.cfg.Evidence.WatchDebounce, a.indexer, a.logger)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
