package server

import (
	"net/http"

	"github.com/cloo-solutions/postcraft/internal/api"
	"github.com/cloo-solutions/postcraft/internal/api/handlers"
	"github.com/cloo-solutions/postcraft/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	APIToken        string
	IngestHandler   *handlers.IngestHandler
	WorkflowHandler *handlers.WorkflowHandler
	SearchHandler   *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/", cfg.IngestHandler.Create)
			r.Get("/{id}", cfg.IngestHandler.Get)
		})

		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/page-post", cfg.WorkflowHandler.CreatePagePost)
			r.Post("/calendar", cfg.WorkflowHandler.CreateCalendar)
			r.Post("/brand-voice", cfg.WorkflowHandler.AnalyzeWebsite)
		})
	})

	return r
}
