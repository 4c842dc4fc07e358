// Package notifier arms local reminder notifications and restores them from
// persisted state after a restart.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/infrastructure/kv"
	"github.com/healthmate-sync/internal/pkg/clock"
)

// KeyPending is the storage key of the persisted pending-notification set.
const KeyPending = "pending_notifications"

// Lead times between the notification and the event it announces.
const (
	MedicineLead    = 10 * time.Minute
	AppointmentLead = 60 * time.Minute
)

// Presenter shows a notification to the user. Delivery is fire-and-forget.
type Presenter interface {
	Present(ctx context.Context, n domain.Presentation) error
}

type armed struct {
	timer clock.Timer
	gen   uint64
}

// Scheduler owns the live notification timers. Each reminder has at most one
// live timer and at most one persisted record; scheduling again replaces both.
type Scheduler struct {
	mu      sync.Mutex
	pending *kv.Collection[domain.PendingNotification]
	present Presenter
	clock   clock.Clock
	timers  map[string]armed
	gen     uint64

	PresentTimeout time.Duration
}

func New(store kv.Store, presenter Presenter, clk clock.Clock) *Scheduler {
	return &Scheduler{
		pending:        kv.NewCollection[domain.PendingNotification](store, KeyPending),
		present:        presenter,
		clock:          clk,
		timers:         make(map[string]armed),
		PresentTimeout: 10 * time.Second,
	}
}

// ScheduleMedicine arms a notification MedicineLead before eventTime. It
// returns false, and does nothing, when that moment is not in the future.
func (s *Scheduler) ScheduleMedicine(ctx context.Context, reminderID, medicineName, dose string, eventTime time.Time) (time.Time, bool) {
	return s.schedule(ctx, domain.PendingNotification{
		ReminderID:   reminderID,
		Type:         domain.NotificationMedicine,
		MedicineName: medicineName,
		Dose:         dose,
		ScheduledAt:  eventTime.Add(-MedicineLead).UTC(),
	})
}

// ScheduleAppointment arms a notification AppointmentLead before appointmentTime.
func (s *Scheduler) ScheduleAppointment(ctx context.Context, reminderID, doctorName, notes string, appointmentTime time.Time) (time.Time, bool) {
	return s.schedule(ctx, domain.PendingNotification{
		ReminderID:  reminderID,
		Type:        domain.NotificationAppointment,
		DoctorName:  doctorName,
		Notes:       notes,
		ScheduledAt: appointmentTime.Add(-AppointmentLead).UTC(),
	})
}

func (s *Scheduler) schedule(ctx context.Context, n domain.PendingNotification) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !n.ScheduledAt.After(s.clock.Now()) {
		slog.Debug("notification not scheduled, fire time passed", "reminder_id", n.ReminderID, "fire_at", n.ScheduledAt)
		return time.Time{}, false
	}
	s.stopLocked(n.ReminderID)

	// Persist first: a crash before the timer fires must be recoverable by Restore.
	if _, err := s.pending.Update(ctx, func(items []domain.PendingNotification) []domain.PendingNotification {
		return append(without(items, n.ReminderID), n)
	}); err != nil {
		slog.Warn("could not persist pending notification", "reminder_id", n.ReminderID, "err", err)
	}
	s.armLocked(n)
	return n.ScheduledAt, true
}

// armLocked starts the timer for n. Callers hold s.mu.
func (s *Scheduler) armLocked(n domain.PendingNotification) {
	s.gen++
	gen := s.gen
	delay := n.ScheduledAt.Sub(s.clock.Now())
	t := s.clock.AfterFunc(delay, func() { s.fire(n, gen) })
	s.timers[n.ReminderID] = armed{timer: t, gen: gen}
	slog.Debug("notification armed", "reminder_id", n.ReminderID, "type", n.Type, "fire_at", n.ScheduledAt)
}

func (s *Scheduler) stopLocked(reminderID string) {
	if a, ok := s.timers[reminderID]; ok {
		a.timer.Stop()
		delete(s.timers, reminderID)
	}
}

func (s *Scheduler) fire(n domain.PendingNotification, gen uint64) {
	s.mu.Lock()
	a, ok := s.timers[n.ReminderID]
	if !ok || a.gen != gen {
		// Cancelled or replaced after the timer had already been released.
		s.mu.Unlock()
		return
	}
	delete(s.timers, n.ReminderID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.PresentTimeout)
	defer cancel()
	if err := s.present.Present(ctx, presentation(n)); err != nil {
		slog.Warn("could not present notification", "reminder_id", n.ReminderID, "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, rearmed := s.timers[n.ReminderID]; rearmed {
		return
	}
	if err := s.removePersisted(context.Background(), n.ReminderID); err != nil {
		slog.Warn("could not clear fired notification", "reminder_id", n.ReminderID, "err", err)
	}
}

// Cancel stops the reminder's timer and forgets its persisted record.
// Cancelling an unknown or already fired reminder is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(reminderID)
	if err := s.removePersisted(ctx, reminderID); err != nil {
		slog.Warn("could not clear cancelled notification", "reminder_id", reminderID, "err", err)
	}
}

// CancelAll stops every live timer. Persisted records are kept so Restore can
// re-arm them later.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.timers)
	for id, a := range s.timers {
		a.timer.Stop()
		delete(s.timers, id)
	}
	return n
}

// Restore re-arms every persisted notification at its persisted fire time and
// rewrites the persisted set to exactly the re-armed records. Duplicates for
// one reminder collapse to the last one; records already due are dropped.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.pending.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending notifications: %w", err)
	}

	latest := make(map[string]domain.PendingNotification, len(items))
	var order []string
	for _, n := range items {
		if _, seen := latest[n.ReminderID]; !seen {
			order = append(order, n.ReminderID)
		}
		latest[n.ReminderID] = n
	}

	now := s.clock.Now()
	restored := make([]domain.PendingNotification, 0, len(order))
	for _, id := range order {
		n := latest[id]
		if !n.ScheduledAt.After(now) {
			slog.Info("dropping stale notification", "reminder_id", id, "fire_at", n.ScheduledAt)
			continue
		}
		s.stopLocked(id)
		s.armLocked(n)
		restored = append(restored, n)
	}

	if err := s.pending.Save(ctx, restored); err != nil {
		slog.Warn("could not rewrite pending notifications", "err", err)
	}
	slog.Info("notifications restored", "restored", len(restored), "read", len(items))
	return len(restored), nil
}

// Pending returns the persisted pending notifications.
func (s *Scheduler) Pending(ctx context.Context) ([]domain.PendingNotification, error) {
	return s.pending.Load(ctx)
}

// Armed returns the reminder ids with a live timer, sorted.
func (s *Scheduler) Armed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scheduler) removePersisted(ctx context.Context, reminderID string) error {
	_, err := s.pending.Update(ctx, func(items []domain.PendingNotification) []domain.PendingNotification {
		return without(items, reminderID)
	})
	return err
}

func without(items []domain.PendingNotification, reminderID string) []domain.PendingNotification {
	out := items[:0]
	for _, n := range items {
		if n.ReminderID != reminderID {
			out = append(out, n)
		}
	}
	return out
}
