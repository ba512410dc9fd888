package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/config"
	"github.com/clett-ai/clett/internal/database"
	"github.com/clett-ai/clett/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	if cfg.Observability.Enabled {
		_, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(cfg.Observability.LicenseKey),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("new relic init")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	srv := server.New(cfg, pool)
	logger.Info().Str("port", cfg.Server.Port).Str("env", cfg.Primary.Env).Msg("starting server")
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
