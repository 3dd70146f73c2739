package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-health-keeper/internal/metrics"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get("/api/version/", h.getServerVersion)
		r.Get("/api/info", h.getServerInfo)
		r.Get("/api/health", h.checkHealth)
		if h.metrics != nil {
			r.Handle("/metrics", h.metrics.Handler())
		}
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.With(h.metrics.Middleware(metrics.OpPush)).Post("/api/sync/push", h.push)
		r.With(h.metrics.Middleware(metrics.OpPull)).Get("/api/sync/pull", h.pull)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
