package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/postroom/postroom/internal/ratelimit"
	"github.com/postroom/postroom/internal/web/handlers"
	"github.com/postroom/postroom/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	RecipientHandler  *handlers.RecipientHandler
	TemplateHandler   *handlers.TemplateHandler
	CredentialHandler *handlers.CredentialHandler
	SettingsHandler   *handlers.SettingsHandler
	LogHandler        *handlers.LogHandler
	DispatchHandler   *handlers.DispatchHandler
	Limiter           *ratelimit.Limiter
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Limiter))

		r.Route("/recipients", func(r chi.Router) {
			r.Get("/", deps.RecipientHandler.HandleList)
			r.Post("/", deps.RecipientHandler.HandleCreate)
			r.Post("/import", deps.RecipientHandler.HandleImport)
			r.Put("/{id}", deps.RecipientHandler.HandleUpdate)
			r.Delete("/{id}", deps.RecipientHandler.HandleDelete)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", deps.TemplateHandler.HandleList)
			r.Post("/", deps.TemplateHandler.HandleCreate)
			r.Get("/{id}", deps.TemplateHandler.HandleGet)
			r.Put("/{id}", deps.TemplateHandler.HandleUpdate)
			r.Delete("/{id}", deps.TemplateHandler.HandleDelete)
		})

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", deps.CredentialHandler.HandleList)
			r.Post("/", deps.CredentialHandler.HandleCreate)
			r.Put("/{id}", deps.CredentialHandler.HandleUpdate)
			r.Post("/{id}/activate", deps.CredentialHandler.HandleActivate)
			r.Post("/{id}/test", deps.CredentialHandler.HandleTest)
			r.Delete("/{id}", deps.CredentialHandler.HandleDelete)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", deps.SettingsHandler.HandleGet)
			r.Put("/", deps.SettingsHandler.HandleUpdate)
		})

		r.Get("/logs", deps.LogHandler.HandleList)
		r.Get("/stats", deps.LogHandler.HandleStats)

		r.Route("/dispatch", func(r chi.Router) {
			r.Post("/", deps.DispatchHandler.HandleStart)
			r.Get("/{runID}", deps.DispatchHandler.HandleGet)
			r.Delete("/{runID}", deps.DispatchHandler.HandleCancel)
		})
	})

	return r
}
