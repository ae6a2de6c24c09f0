package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/forecast-hub-etl/internal/adapter/http"
	"github.com/couchcryptid/forecast-hub-etl/internal/adapter/hub"
	kafkaadapter "github.com/couchcryptid/forecast-hub-etl/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-hub-etl/internal/config"
	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
	"github.com/couchcryptid/forecast-hub-etl/internal/observability"
	"github.com/couchcryptid/forecast-hub-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	policy, err := loadPolicy(cfg, logger)
	if err != nil {
		logger.Error("failed to load location policy", "error", err)
		os.Exit(1)
	}

	validTargets := loadTargets(cfg, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(validTargets, policy, cfg.SeasonStartYear, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadPolicy builds the location-aware row policy from the bundled table or
// an operator-supplied override file.
func loadPolicy(cfg *config.Config, logger *slog.Logger) (*domain.CovidPolicy, error) {
	if cfg.LocationsFile != "" {
		logger.Info("loading locations from file", "path", cfg.LocationsFile)
		return domain.LoadCovidPolicyFromFile(cfg.LocationsFile)
	}
	return domain.LoadCovidPolicy()
}

// loadTargets resolves the target vocabulary. When the hub configuration
// service is enabled its published config wins; otherwise, or when the fetch
// fails, the bundled vocabulary is used.
func loadTargets(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) []string {
	if !cfg.HubEnabled {
		logger.Info("hub configuration service disabled, using bundled targets")
		return domain.CovidTargets()
	}

	metrics.HubEnabled.Set(1)
	client := hub.NewClient(cfg.HubURL, cfg.HubToken, cfg.HubTimeout, metrics, logger)
	fetcher := hub.NewCachedFetcher(client, cfg.HubCacheSize, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HubTimeout)
	defer cancel()

	hubConfig, err := fetcher.FetchValidationConfig(ctx, cfg.HubProject)
	if err != nil {
		logger.Warn("hub config fetch failed, falling back to bundled targets",
			"project", cfg.HubProject, "error", err)
		return domain.CovidTargets()
	}

	targets := hubConfig.AllTargets()
	logger.Info("hub configuration loaded",
		"project", cfg.HubProject, "target_groups", len(hubConfig.TargetGroups), "targets", len(targets))
	return targets
}
