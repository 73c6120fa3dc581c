package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/otodash/erp-sync/pkg/api"
	"github.com/otodash/erp-sync/pkg/audit"
	"github.com/otodash/erp-sync/pkg/config"
	"github.com/otodash/erp-sync/pkg/connector"
	"github.com/otodash/erp-sync/pkg/domain"
	"github.com/otodash/erp-sync/pkg/metrics"
	"github.com/otodash/erp-sync/pkg/store"
	"github.com/otodash/erp-sync/pkg/telemetry"
	"github.com/otodash/erp-sync/pkg/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/erp-sync")
	if err != nil {
		log.Fatal().Err(err).Msg("error loading configuration")
	}

	// Initialize telemetry (tracing)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer shutdownTelemetry()

	// Initialize the event store
	eventStore, err := store.NewStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize event store")
	}
	defer eventStore.Close(context.Background())

	// Delivery audit log, bounded to the configured window
	auditLog := audit.NewLog(cfg.Audit.MaxEntries)

	// Initialize the delivery connector, wrapped so successful deliveries
	// land in the audit log
	conn, err := connector.NewConnector(ctx, &cfg.Connector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize connector")
	}
	conn = connector.WithAudit(conn, auditLog)
	defer conn.Close()

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)

	// The owning domain services provide entity snapshots; absence is
	// tolerated end to end.
	snapshots := domain.NewStaticSnapshotSource()

	syncWorker := worker.NewSyncWorker(eventStore, conn, snapshots, worker.Options{
		PollInterval: cfg.Worker.PollInterval,
		Metrics:      syncMetrics,
	})
	syncWorker.Start(ctx)

	server := api.NewServer(eventStore, auditLog, cfg.Worker.OfflineThreshold, registry)
	httpServer := &http.Server{
		Addr:    cfg.API.Addr,
		Handler: server.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.API.Addr).Msg("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	syncWorker.Stop()
	if err := httpServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("api server shutdown failed")
	}
}
