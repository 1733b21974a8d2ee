package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/island-resilience-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/island-resilience-service/internal/adapter/kafka"
	"github.com/couchcryptid/island-resilience-service/internal/app"
	"github.com/couchcryptid/island-resilience-service/internal/config"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
	"github.com/couchcryptid/island-resilience-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Advisory client is feature-flagged via ADVISORY_ENABLED / ADVISORY_URL.
	advisor := app.NewAdvisor(cfg, metrics, logger)
	if advisor != nil {
		logger.Info("advisory enabled", "cache_size", cfg.AdvisoryCacheSize, "timeout", cfg.AdvisoryTimeout)
	} else {
		logger.Info("advisory disabled, using fallback reports")
	}

	a, err := app.New(cfg, advisor, logger, metrics)
	if err != nil {
		logger.Error("failed to build baseline", "error", err)
		os.Exit(1)
	}

	var loader pipeline.BatchLoader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(a.Evaluator, loader, pipeline.Options{
		PublishInterval: cfg.PublishInterval,
		PruneInterval:   cfg.ReportPruneInterval,
		ReportMaxAge:    cfg.ReportMaxAge,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Evaluator, p, cfg.ReportMaxAge, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start publish and prune loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := a.Close(); err != nil {
		logger.Error("report store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
