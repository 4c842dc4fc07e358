package syncengine

import (
	"context"
	"fmt"

	"github.com/healthmate-sync/internal/domain"
)

// Dispatch is an Applier that routes an entry to the handler for its operation.
// Entries with an unknown operation or a newer schema version are rejected
// so they stay queued.
type Dispatch struct {
	Create func(ctx context.Context, entry domain.QueueEntry) error
	Update func(ctx context.Context, entry domain.QueueEntry) error
	Delete func(ctx context.Context, entry domain.QueueEntry) error
}

func (d Dispatch) Apply(ctx context.Context, entry domain.QueueEntry) error {
	if v := entry.SchemaVersion(); v > domain.QueueEntryVersion {
		return fmt.Errorf("entry %s has version %d: %w", entry.EntryID, v, domain.ErrUnsupportedVersion)
	}
	var h func(context.Context, domain.QueueEntry) error
	switch entry.Operation {
	case domain.OpCreate:
		h = d.Create
	case domain.OpUpdate:
		h = d.Update
	case domain.OpDelete:
		h = d.Delete
	}
	if h == nil {
		return fmt.Errorf("entry %s operation %q: %w", entry.EntryID, entry.Operation, domain.ErrUnknownOperation)
	}
	return h(ctx, entry)
}
