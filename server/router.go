// Package server exposes a read-only HTTP gateway over an asset backend so
// that URLs built from the configured root URL resolve.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/recommerce/asset/server/handlers"
	assetMiddleware "github.com/recommerce/asset/server/middleware"
)

// NewRouter creates and configures the HTTP router.
// Assets are staged in tmpDir while they are served.
func NewRouter(assets handlers.Assets, tmpDir string, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(assetMiddleware.Observe(logger))

	r.Get("/health", handlers.V1Health(assets, logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(assetMiddleware.SecurityHeaders())

		getAsset := handlers.V1GetAsset(assets, tmpDir, logger)
		r.Get("/assets/*", getAsset)
		r.Head("/assets/*", getAsset)

		r.Get("/list", handlers.V1ListAssets(assets, logger))
		r.Get("/list/*", handlers.V1ListAssets(assets, logger))
	})

	logger.Info("HTTP router configured successfully")

	return r
}
