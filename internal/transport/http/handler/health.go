package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Gate reports whether the remote store is reachable.
type Gate interface {
	IsOnline(ctx context.Context) bool
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	gate Gate
}

func NewHealthHandler(gate Gate) *HealthHandler { return &HealthHandler{gate: gate} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "remote":
		if h.gate != nil && !h.gate.IsOnline(r.Context()) {
			writeJSON(w, http.StatusOK, MessageEnvelope{Message: "offline"})
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "online"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
