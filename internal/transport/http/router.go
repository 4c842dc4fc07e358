package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/healthmate-sync/internal/config"
	"github.com/healthmate-sync/internal/transport/http/handler"
	appmiddleware "github.com/healthmate-sync/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Without a provider nothing puts claims on the context, so the
	// profile-scoped handlers reject every request with 401.
	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// Flush and restore walk whole collections; 1 request/second, burst of 5.
	heavyRL := appmiddleware.NewRateLimiter(rate.Limit(1), 5)

	healthH := handler.NewHealthHandler(deps.Gate)
	reminderH := handler.NewReminderHandler(deps.Reminders)
	documentH := handler.NewDocumentHandler(deps.Documents)
	syncH := handler.NewSyncHandler(deps.Engines)
	notifH := handler.NewNotificationHandler(deps.Notifications)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/reminders", reminderH.Create)
			r.Put("/reminders/{id}", reminderH.Update)
			r.Delete("/reminders/{id}", reminderH.Delete)

			r.Post("/documents", documentH.Upload)
			r.Put("/documents/{id}", documentH.Update)
			r.Delete("/documents/{id}", documentH.Delete)

			r.Get("/sync/{domain}/queue", syncH.Queue)
			r.With(heavyRL.Limit).Post("/sync/{domain}/flush", syncH.Flush)

			r.Get("/notifications/pending", notifH.Pending)
			r.With(heavyRL.Limit).Post("/notifications/restore", notifH.Restore)
			r.Delete("/notifications/{reminderId}", notifH.Cancel)
			r.Delete("/notifications", notifH.CancelAll)
		})
	})

	return r
}
