package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/cache"
	"github.com/minisentry/minisentry/internal/config"
	"github.com/minisentry/minisentry/internal/handler"
	"github.com/minisentry/minisentry/internal/ingest"
	"github.com/minisentry/minisentry/internal/repository"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo      *echo.Echo
	Config    *config.Config
	Directory *cache.ProjectDirectory
}

// New builds the Echo server and registers routes.
// Caller must provide a non-nil pool (e.g. from database.NewPool).
func New(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second
	e.Use(middleware.Recover(), middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT},
	}))

	projectRepo := repository.NewProjectRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)

	directory := cache.NewProjectDirectory(projectRepo)
	if err := directory.Refresh(context.Background()); err != nil {
		logger.Error().Err(err).Msg("initial project directory load")
	}

	pipeline := ingest.NewPipeline(projectRepo, recordRepo, directory, logger)

	ingestHandler := &handler.IngestHandler{Pipeline: pipeline}
	recordHandler := &handler.RecordHandler{
		Records:   recordRepo,
		Directory: directory,
		PageSize:  cfg.Server.PageSize,
	}
	projectHandler := &handler.ProjectHandler{
		Projects:  projectRepo,
		Directory: directory,
		Log:       logger.With().Str("component", "projects").Logger(),
	}

	// Envelope ingest (Sentry store protocol shape)
	e.POST("/api/:project_id/envelope/", ingestHandler.Handle)

	// Read API
	e.GET("/api/records", recordHandler.List)
	e.GET("/api/records/:id", recordHandler.Get)
	e.GET("/api/projects", projectHandler.List)
	e.PUT("/api/projects/:id", projectHandler.Rename)

	return &Server{Echo: e, Config: cfg, Directory: directory}
}

// Start starts the HTTP server. Blocks until the context is cancelled or the
// server fails. On context cancel, Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	addr := ":" + s.Config.Server.Port
	return s.Echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
