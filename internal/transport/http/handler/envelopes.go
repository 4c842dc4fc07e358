package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/healthmate-sync/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// WriteEnvelope wraps the result of a user write: the record as the caller
// sees it and whether it reached the remote store or the offline queue.
type WriteEnvelope struct {
	Outcome domain.Outcome `json:"outcome"`
	Data    interface{}    `json:"data,omitempty"`
}

// QueueEnvelope lists the pending mutations of one domain.
type QueueEnvelope struct {
	Domain   string              `json:"domain"`
	InFlight bool                `json:"in_flight"`
	Count    int                 `json:"count"`
	Entries  []domain.QueueEntry `json:"entries"`
}

// FlushEnvelope reports a flush and the entries that failed during it.
type FlushEnvelope struct {
	Domain    string         `json:"domain"`
	Synced    int            `json:"synced"`
	Remaining int            `json:"remaining"`
	Failures  []FlushFailure `json:"failures,omitempty"`
}

type FlushFailure struct {
	EntryID string `json:"entry_id"`
	Error   string `json:"error"`
}

// PendingNotificationsEnvelope lists persisted notifications and live timers.
type PendingNotificationsEnvelope struct {
	Pending []domain.PendingNotification `json:"pending"`
	Armed   []string                     `json:"armed"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeStatus is 201/200 for writes applied remotely and 202 for queued ones.
func writeStatus(outcome domain.Outcome, applied int) int {
	if outcome == domain.OutcomeQueued {
		return http.StatusAccepted
	}
	return applied
}
