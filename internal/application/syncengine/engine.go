// Package syncengine drains an offline mutation queue against the remote store.
package syncengine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/healthmate-sync/internal/application/queue"
	"github.com/healthmate-sync/internal/domain"
)

// Applier replays one queued mutation against the remote store.
type Applier interface {
	Apply(ctx context.Context, entry domain.QueueEntry) error
}

// Gate reports whether the remote store is reachable.
type Gate interface {
	IsOnline(ctx context.Context) bool
}

// FlushOptions narrows a flush to one profile and observes its progress.
// Callbacks run synchronously on the flushing goroutine.
type FlushOptions struct {
	ProfileID   string
	OnProcessed func(entry domain.QueueEntry)
	OnError     func(entry domain.QueueEntry, err error)
}

// Result summarises a flush.
type Result struct {
	Synced    int `json:"synced"`
	Remaining int `json:"remaining"`
}

// Engine flushes one domain queue. At most one flush runs at a time per
// Engine; concurrent callers return immediately with the current backlog.
type Engine struct {
	name    string
	queue   *queue.Queue
	applier Applier
	gate    Gate
	running atomic.Bool
}

func New(name string, q *queue.Queue, applier Applier, gate Gate) *Engine {
	return &Engine{name: name, queue: q, applier: applier, gate: gate}
}

func (e *Engine) Name() string { return e.name }

// InFlight reports whether a flush is currently running.
func (e *Engine) InFlight() bool { return e.running.Load() }

// Pending returns the queued entries, optionally for one profile.
func (e *Engine) Pending(ctx context.Context, profileID string) []domain.QueueEntry {
	return e.queue.List(ctx, profileID)
}

// Flush applies queued entries in enqueue order. Failed entries and entries
// of other profiles stay queued; everything applied is removed in one write.
func (e *Engine) Flush(ctx context.Context, opts FlushOptions) Result {
	if !e.running.CompareAndSwap(false, true) {
		backlog := e.queue.Len(ctx)
		slog.Debug("flush already running", "queue", e.name, "backlog", backlog)
		return Result{Remaining: backlog}
	}
	defer e.running.Store(false)

	entries := e.queue.List(ctx, "")
	if len(entries) == 0 {
		return Result{}
	}
	if !e.gate.IsOnline(ctx) {
		slog.Info("flush skipped, remote unreachable", "queue", e.name, "backlog", len(entries))
		return Result{Remaining: len(entries)}
	}

	var synced []string
	for _, entry := range entries {
		if opts.ProfileID != "" && entry.ProfileID != opts.ProfileID {
			continue
		}
		if err := e.applier.Apply(ctx, entry); err != nil {
			slog.Warn("queued mutation failed",
				"queue", e.name, "entry_id", entry.EntryID, "op", entry.Operation, "err", err)
			if opts.OnError != nil {
				opts.OnError(entry, err)
			}
			continue
		}
		synced = append(synced, entry.EntryID)
		if opts.OnProcessed != nil {
			opts.OnProcessed(entry)
		}
	}

	if len(synced) == 0 {
		return Result{Remaining: len(entries)}
	}
	remaining, res := e.queue.RemoveEntries(ctx, synced)
	if res == domain.NotPersisted {
		// Synced entries stay queued and replay on the next flush.
		slog.Warn("flush result not persisted", "queue", e.name, "synced", len(synced))
	}
	slog.Info("flush finished", "queue", e.name, "synced", len(synced), "remaining", remaining)
	return Result{Synced: len(synced), Remaining: remaining}
}
