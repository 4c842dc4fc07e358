package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/healthmate-sync/internal/application/syncengine"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/transport/http/middleware"
)

// Flusher is one domain's sync engine.
type Flusher interface {
	Flush(ctx context.Context, opts syncengine.FlushOptions) syncengine.Result
	Pending(ctx context.Context, profileID string) []domain.QueueEntry
	InFlight() bool
}

// SyncHandler exposes the offline queues and their flush.
type SyncHandler struct {
	engines map[string]Flusher
}

// NewSyncHandler takes the engines keyed by domain name ("reminders", "documents").
func NewSyncHandler(engines map[string]Flusher) *SyncHandler {
	return &SyncHandler{engines: engines}
}

func (h *SyncHandler) engine(w http.ResponseWriter, r *http.Request) (string, Flusher, bool) {
	name := chi.URLParam(r, "domain")
	e, ok := h.engines[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sync domain")
		return "", nil, false
	}
	return name, e, true
}

func (h *SyncHandler) Queue(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	name, e, ok := h.engine(w, r)
	if !ok {
		return
	}
	entries := e.Pending(r.Context(), claims.ProfileID)
	if entries == nil {
		entries = []domain.QueueEntry{}
	}
	writeJSON(w, http.StatusOK, QueueEnvelope{
		Domain:   name,
		InFlight: e.InFlight(),
		Count:    len(entries),
		Entries:  entries,
	})
}

// Flush drains the caller's entries; ?all=true drains every profile's.
func (h *SyncHandler) Flush(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	name, e, ok := h.engine(w, r)
	if !ok {
		return
	}

	opts := syncengine.FlushOptions{ProfileID: claims.ProfileID}
	if r.URL.Query().Get("all") == "true" {
		opts.ProfileID = ""
	}
	var (
		mu       sync.Mutex
		failures []FlushFailure
	)
	opts.OnError = func(entry domain.QueueEntry, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, FlushFailure{EntryID: entry.EntryID, Error: err.Error()})
	}

	res := e.Flush(r.Context(), opts)
	writeJSON(w, http.StatusOK, FlushEnvelope{
		Domain:    name,
		Synced:    res.Synced,
		Remaining: res.Remaining,
		Failures:  failures,
	})
}
