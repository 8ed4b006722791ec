// Package app contains the application setup for the product manager.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/productmanager/internal/catalog/client"
	"github.com/abgdnv/productmanager/internal/config"
	"github.com/abgdnv/productmanager/internal/manager"
	"github.com/abgdnv/productmanager/internal/ui"
	"github.com/abgdnv/productmanager/pkg/server"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	Manager *manager.Manager
	Logger  *slog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// SetupDependencies wires the manager to the page API named by cfg.
func SetupDependencies(cfg config.ManagerConfig, logger *slog.Logger) *Dependencies {
	pageClient := client.New(cfg.API, cfg.Resilience.CircuitBreaker, logger)
	return NewDependencies(pageClient, logger)
}

// NewDependencies wires the manager to an existing page client.
func NewDependencies(pageClient client.PageClient, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		Manager: manager.New(pageClient, logger),
		Logger:  logger,
	}
}

// SetupHttpHandler initializes the routes of the product manager.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	ui.NewHandler(deps.Manager, deps.Logger).RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the product manager.
func SetupHttpServer(deps *Dependencies, cfg config.ManagerConfig) *http.Server {
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
