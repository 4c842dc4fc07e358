package domain

import (
	"encoding/json"
	"time"
)

// Operation is the mutation a queue entry replays against the remote store.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueEntryVersion is the payload schema version written by this build.
// Entries carrying a higher version are kept in the queue untouched.
const QueueEntryVersion = 1

// QueueEntry is one pending mutation awaiting application to the remote store.
type QueueEntry struct {
	EntryID   string          `json:"entryId"`
	ProfileID string          `json:"profileId"`
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
	QueuedAt  time.Time       `json:"queuedAt"`
	Version   int             `json:"v,omitempty"` // absent in entries written before versioning; read as 1
}

// SchemaVersion returns the entry's payload version, treating a missing tag as 1.
func (e QueueEntry) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// PersistResult reports whether a best-effort local write reached durable storage.
type PersistResult int

const (
	Persisted PersistResult = iota
	NotPersisted
)

func (r PersistResult) String() string {
	if r == Persisted {
		return "persisted"
	}
	return "not_persisted"
}

// Outcome tells the caller how a user-originated write was handled.
type Outcome string

const (
	OutcomeApplied Outcome = "applied" // written to the remote store immediately
	OutcomeQueued  Outcome = "queued"  // deferred to the offline queue
)
