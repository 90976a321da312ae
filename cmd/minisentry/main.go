package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/config"
	"github.com/minisentry/minisentry/internal/database"
	"github.com/minisentry/minisentry/internal/observability"
	"github.com/minisentry/minisentry/internal/repository"
	"github.com/minisentry/minisentry/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		// LoadConfig fatals on its own logger; this is unreachable in practice.
		os.Exit(1)
	}

	logger := newLogger(cfg.Primary.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL()); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	nrApp, err := observability.NewApplication(cfg.Observability)
	if err != nil {
		logger.Fatal().Err(err).Msg("observability")
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger, nrApp)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	if cfg.Projects.Seed != "" {
		projects, skipped := config.ParseSeedProjects(cfg.Projects.Seed)
		for _, msg := range skipped {
			logger.Error().Msg(msg)
		}
		repo := repository.NewProjectRepository(pool)
		for _, p := range projects {
			if err := repo.Upsert(ctx, p); err != nil {
				logger.Fatal().Err(err).Int64("project_id", p.ID).Msg("seed project")
			}
		}
		logger.Info().Int("count", len(projects)).Msg("seeded projects")
	}

	srv := server.New(cfg, pool, logger)
	logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
