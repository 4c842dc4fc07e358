package http

import (
	"github.com/healthmate-sync/internal/application/document"
	"github.com/healthmate-sync/internal/application/reminder"
	jwtinfra "github.com/healthmate-sync/internal/infrastructure/jwt"
	"github.com/healthmate-sync/internal/transport/http/handler"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Reminders     reminder.Service
	Documents     document.Service
	Engines       map[string]handler.Flusher
	Notifications handler.NotificationScheduler
	Gate          handler.Gate
	JWTProvider   *jwtinfra.Provider
}
