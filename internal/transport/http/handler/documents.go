package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/healthmate-sync/internal/application/document"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/transport/http/middleware"
)

// maxDocumentBody bounds a base64 upload request.
const maxDocumentBody = 32 << 20

// DocumentHandler handles medical document writes.
type DocumentHandler struct {
	svc document.Service
}

func NewDocumentHandler(svc document.Service) *DocumentHandler { return &DocumentHandler{svc: svc} }

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UploadDocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, outcome, err := h.svc.Upload(r.Context(), claims.ProfileID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, writeStatus(outcome, http.StatusCreated), WriteEnvelope{Outcome: outcome, Data: doc})
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateDocumentRequest
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

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
