// Package app contains the application setup for the reference page API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productmanager/internal/config"
	"github.com/abgdnv/productmanager/internal/pageapi/rest"
	"github.com/abgdnv/productmanager/internal/pageapi/store"
	"github.com/abgdnv/productmanager/pkg/bootstrap"
	"github.com/abgdnv/productmanager/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Store  store.PageStore
	Logger *slog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func SetupDependencies(s store.PageStore, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		Store:  s,
		Logger: logger,
	}
}

// SetupStore opens the store selected by the database config: PostgreSQL with migrations
// applied when a URL is configured, memory otherwise. The returned func releases it.
func SetupStore(ctx context.Context, cfg config.PageAPIConfig, logger *slog.Logger) (store.PageStore, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Info("No database configured, using the in-memory store")
		return store.NewInMemoryStore(), func() {}, nil
	}
	if err := store.Migrate(cfg.Database.URL); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Successfully connected to the database!")
	return store.NewPgStore(dbPool), dbPool.Close, nil
}

// Seed loads the configured seed file into the empty pages of the store.
func Seed(ctx context.Context, deps *Dependencies, cfg config.PageAPIConfig) error {
	if cfg.Seed.File == "" {
		return nil
	}
	if err := store.SeedFile(ctx, deps.Store, cfg.Seed.File, deps.Logger); err != nil {
		return fmt.Errorf("failed to seed store from %s: %w", cfg.Seed.File, err)
	}
	return nil
}

// SetupHttpHandler initializes the routes of the page API.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	rest.NewHandler(deps.Store, deps.Logger).RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the page API.
func SetupHttpServer(deps *Dependencies, cfg config.PageAPIConfig) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
