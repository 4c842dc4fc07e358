package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/healthmate-sync/internal/domain"
)

// NotificationScheduler is the local notification scheduler.
type NotificationScheduler interface {
	Pending(ctx context.Context) ([]domain.PendingNotification, error)
	Armed() []string
	Restore(ctx context.Context) (int, error)
	Cancel(ctx context.Context, reminderID string)
	CancelAll() int
}

// NotificationHandler inspects and controls scheduled reminder notifications.
type NotificationHandler struct {
	sched NotificationScheduler
}

func NewNotificationHandler(sched NotificationScheduler) *NotificationHandler {
	return &NotificationHandler{sched: sched}
}

func (h *NotificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.sched.Pending(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if pending == nil {
		pending = []domain.PendingNotification{}
	}
	writeJSON(w, http.StatusOK, PendingNotificationsEnvelope{Pending: pending, Armed: h.sched.Armed()})
}

func (h *NotificationHandler) Restore(w http.ResponseWriter, r *http.Request) {
	n, err := h.sched.Restore(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}

func (h *NotificationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.sched.Cancel(r.Context(), chi.URLParam(r, "reminderId"))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "cancelled"})
}

func (h *NotificationHandler) CancelAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"stopped": h.sched.CancelAll()})
}
