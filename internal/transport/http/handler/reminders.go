package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/healthmate-sync/internal/application/reminder"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/transport/http/middleware"
)

// ReminderHandler handles reminder writes.
type ReminderHandler struct {
	svc reminder.Service
}

func NewReminderHandler(svc reminder.Service) *ReminderHandler { return &ReminderHandler{svc: svc} }

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rem, outcome, err := h.svc.Create(r.Context(), claims.ProfileID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, writeStatus(outcome, http.StatusCreated), WriteEnvelope{Outcome: outcome, Data: rem})
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := h.svc.Update(r.Context(), claims.ProfileID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, writeStatus(outcome, http.StatusOK), WriteEnvelope{Outcome: outcome})
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	outcome, err := h.svc.Delete(r.Context(), claims.ProfileID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, writeStatus(outcome, http.StatusOK), WriteEnvelope{Outcome: outcome})
}
