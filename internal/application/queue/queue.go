// Package queue is the offline mutation queue. One Queue exists per synced
// domain, each persisted as a JSON array under its own key.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/infrastructure/kv"
	"github.com/healthmate-sync/internal/pkg/id"
)

// Storage keys of the two domain queues.
const (
	KeyReminders = "offline_queue:reminders"
	KeyDocuments = "offline_queue:documents"
)

// Queue is an ordered, persisted list of pending mutations.
// Persistence is best-effort: failures are logged and reported as
// domain.NotPersisted, never returned as errors.
type Queue struct {
	name    string
	entries *kv.Collection[domain.QueueEntry]
	now     func() time.Time
}

func New(name string, store kv.Store, key string) *Queue {
	return &Queue{
		name:    name,
		entries: kv.NewCollection[domain.QueueEntry](store, key),
		now:     time.Now,
	}
}

func (q *Queue) Name() string { return q.name }

// Enqueue appends a mutation for profileID. payload is JSON-encoded as-is.
func (q *Queue) Enqueue(ctx context.Context, profileID string, op domain.Operation, payload any) (domain.QueueEntry, domain.PersistResult) {
	entry := domain.QueueEntry{
		EntryID:   id.New(),
		ProfileID: profileID,
		Operation: op,
		QueuedAt:  q.now().UTC(),
		Version:   domain.QueueEntryVersion,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("could not encode queue payload", "queue", q.name, "op", op, "err", err)
		return entry, domain.NotPersisted
	}
	entry.Payload = raw

	if _, err := q.entries.Update(ctx, func(entries []domain.QueueEntry) []domain.QueueEntry {
		return append(entries, entry)
	}); err != nil {
		slog.Warn("could not persist queue entry", "queue", q.name, "entry_id", entry.EntryID, "err", err)
		return entry, domain.NotPersisted
	}
	slog.Debug("queued mutation", "queue", q.name, "entry_id", entry.EntryID, "op", op, "profile_id", profileID)
	return entry, domain.Persisted
}

// List returns the queued entries in insertion order; all of them when
// profileID is empty, otherwise only that profile's.
func (q *Queue) List(ctx context.Context, profileID string) []domain.QueueEntry {
	entries, err := q.entries.Load(ctx)
	if err != nil {
		slog.Warn("could not read queue", "queue", q.name, "err", err)
		return nil
	}
	if profileID == "" {
		return entries
	}
	out := make([]domain.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.ProfileID == profileID {
			out = append(out, e)
		}
	}
	return out
}

// HasPending reports whether profileID has a queued entry whose payload
// carries recordID as its record_id. A later mutation of that record must
// queue behind it to keep per-record order.
func (q *Queue) HasPending(ctx context.Context, profileID, recordID string) bool {
	if recordID == "" {
		return false
	}
	for _, e := range q.List(ctx, profileID) {
		var ref struct {
			RecordID string `json:"record_id"`
		}
		if err := json.Unmarshal(e.Payload, &ref); err != nil {
			continue
		}
		if ref.RecordID == recordID {
			return true
		}
	}
	return false
}

func (q *Queue) Len(ctx context.Context) int {
	return len(q.List(ctx, ""))
}

// Remove deletes one entry. Removing the last entry deletes the storage key.
func (q *Queue) Remove(ctx context.Context, entryID string) domain.PersistResult {
	_, result := q.RemoveEntries(ctx, []string{entryID})
	return result
}

// RemoveEntries deletes the given entries in a single write and returns how
// many entries remain. Entries appended since the caller read the queue are kept.
func (q *Queue) RemoveEntries(ctx context.Context, entryIDs []string) (int, domain.PersistResult) {
	drop := make(map[string]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		drop[id] = struct{}{}
	}
	left, err := q.entries.Update(ctx, func(entries []domain.QueueEntry) []domain.QueueEntry {
		kept := entries[:0]
		for _, e := range entries {
			if _, ok := drop[e.EntryID]; !ok {
				kept = append(kept, e)
			}
		}
		return kept
	})
	if err != nil {
		slog.Warn("could not persist queue removal", "queue", q.name, "count", len(entryIDs), "err", err)
		return q.Len(ctx), domain.NotPersisted
	}
	return len(left), domain.Persisted
}
