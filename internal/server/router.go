package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/api"
	"github.com/reglens/reglens/internal/api/handlers"
	"github.com/reglens/reglens/internal/api/middleware"
)

type RouterConfig struct {
	APIKey          string
	Logger          *zap.Logger
	SearchHandler   *handlers.SearchHandler
	IngestHandler   *handlers.IngestHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceKeyAuth(cfg.APIKey))

		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/metrics", cfg.SearchHandler.Metrics)

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/", cfg.IngestHandler.Start)
			r.Get("/{id}", cfg.IngestHandler.Status)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})
	})

	return r
}
