package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(withLogging)
	router.Use(withGZip)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.register)
		r.Post("/api/user/login", h.login)
		r.Post("/api/user/params", h.params)
		r.Post("/api/recovery/lookup", h.recoveryLookup)
		r.Post("/api/recovery/reset", h.recoveryReset)
		r.Get("/api/version/", h.getServerVersion)
	})

	// vault routes require a live session
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/api/vault/", h.downloadVault)
		r.Put("/api/vault/", h.uploadVault)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
