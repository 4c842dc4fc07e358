package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthmate-sync/internal/application/notifier"
	"github.com/healthmate-sync/internal/application/queue"
	"github.com/healthmate-sync/internal/application/syncengine"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/pkg/id"
	"github.com/healthmate-sync/internal/pkg/validate"
)

// RecordStore is the remote, path-addressed record store.
type RecordStore interface {
	Create(ctx context.Context, collectionPath string, record map[string]any) (string, error)
	Update(ctx context.Context, path string, partial map[string]any) error
	Delete(ctx context.Context, path string) error
}

type Gate interface {
	IsOnline(ctx context.Context) bool
}

// Notifier arms and cancels the local notification for a reminder.
type Notifier interface {
	ScheduleMedicine(ctx context.Context, reminderID, medicineName, dose string, eventTime time.Time) (time.Time, bool)
	ScheduleAppointment(ctx context.Context, reminderID, doctorName, notes string, appointmentTime time.Time) (time.Time, bool)
	Cancel(ctx context.Context, reminderID string)
	Pending(ctx context.Context) ([]domain.PendingNotification, error)
}

type Service interface {
	Create(ctx context.Context, profileID string, req domain.CreateReminderRequest) (*domain.Reminder, domain.Outcome, error)
	Update(ctx context.Context, profileID, reminderID string, req domain.UpdateReminderRequest) (domain.Outcome, error)
	Delete(ctx context.Context, profileID, reminderID string) (domain.Outcome, error)

	ApplyNow(ctx context.Context, profileID string, p CreatePayload) error
	ApplyUpdateNow(ctx context.Context, profileID string, p UpdatePayload) error
	ApplyDeleteNow(ctx context.Context, profileID string, p DeletePayload) error

	// Apply replays one queued entry; it is the flush Applier for the reminders queue.
	Apply(ctx context.Context, entry domain.QueueEntry) error
}

type service struct {
	store    RecordStore
	queue    *queue.Queue
	gate     Gate
	notifier Notifier
	dispatch syncengine.Dispatch
}

func NewService(store RecordStore, q *queue.Queue, gate Gate, notifier Notifier) Service {
	s := &service{store: store, queue: q, gate: gate, notifier: notifier}
	s.dispatch = syncengine.Dispatch{
		Create: s.applyCreateEntry,
		Update: s.applyUpdateEntry,
		Delete: s.applyDeleteEntry,
	}
	return s
}

func (s *service) Create(ctx context.Context, profileID string, req domain.CreateReminderRequest) (*domain.Reminder, domain.Outcome, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}
	r := &domain.Reminder{
		ReminderID:   id.New(),
		ProfileID:    profileID,
		Type:         domain.ReminderType(req.Type),
		MedicineName: req.MedicineName,
		Dose:         req.Dose,
		DoctorName:   req.DoctorName,
		Notes:        req.Notes,
		ScheduledAt:  req.ScheduledAt.UTC(),
	}
	p := createPayloadFrom(r)

	outcome := s.write(ctx, profileID, p.RecordID, domain.OpCreate, p, func() error {
		return s.ApplyNow(ctx, profileID, p)
	})
	s.arm(ctx, r.ReminderID, r.Type, r.MedicineName, r.Dose, r.DoctorName, r.Notes, r.ScheduledAt)
	return r, outcome, nil
}

func (s *service) Update(ctx context.Context, profileID, reminderID string, req domain.UpdateReminderRequest) (domain.Outcome, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	p := UpdatePayload{RecordID: reminderID, Fields: req}

	var notFound error
	outcome := s.write(ctx, profileID, p.RecordID, domain.OpUpdate, p, func() error {
		err := s.ApplyUpdateNow(ctx, profileID, p)
		if errors.Is(err, domain.ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	})
	if notFound != nil {
		return "", notFound
	}
	s.rearm(ctx, reminderID, req)
	return outcome, nil
}

func (s *service) Delete(ctx context.Context, profileID, reminderID string) (domain.Outcome, error) {
	if reminderID == "" {
		return "", fmt.Errorf("reminder id required: %w", domain.ErrBadRequest)
	}
	p := DeletePayload{RecordID: reminderID}
	outcome := s.write(ctx, profileID, p.RecordID, domain.OpDelete, p, func() error {
		return s.ApplyDeleteNow(ctx, profileID, p)
	})
	s.notifier.Cancel(ctx, reminderID)
	return outcome, nil
}

// write applies a mutation now when the remote store is reachable and queues
// it otherwise, or when the immediate attempt fails. A record with mutations
// still queued is never written directly; the new one queues behind them.
func (s *service) write(ctx context.Context, profileID, recordID string, op domain.Operation, payload any, now func() error) domain.Outcome {
	switch {
	case s.queue.HasPending(ctx, profileID, recordID):
		slog.Debug("reminder has queued mutations, queueing behind them", "op", op, "record_id", recordID)
	case s.gate.IsOnline(ctx):
		err := now()
		if err == nil {
			return domain.OutcomeApplied
		}
		slog.Warn("immediate reminder write failed, queueing", "op", op, "profile_id", profileID, "err", err)
	}
	entry, res := s.queue.Enqueue(ctx, profileID, op, payload)
	if res != domain.Persisted {
		slog.Error("reminder mutation not persisted", "op", op, "profile_id", profileID, "entry_id", entry.EntryID)
	}
	return domain.OutcomeQueued
}

func (s *service) ApplyNow(ctx context.Context, profileID string, p CreatePayload) error {
	_, err := s.store.Create(ctx, domain.CollectionPath(profileID, domain.CollectionReminders), p.record())
	return err
}

func (s *service) ApplyUpdateNow(ctx context.Context, profileID string, p UpdatePayload) error {
	if p.RecordID == "" {
		return fmt.Errorf("update payload has no record id: %w", domain.ErrBadRequest)
	}
	return s.store.Update(ctx, domain.RecordPath(profileID, domain.CollectionReminders, p.RecordID), p.fields())
}

func (s *service) ApplyDeleteNow(ctx context.Context, profileID string, p DeletePayload) error {
	if p.RecordID == "" {
		return fmt.Errorf("delete payload has no record id: %w", domain.ErrBadRequest)
	}
	return s.store.Delete(ctx, domain.RecordPath(profileID, domain.CollectionReminders, p.RecordID))
}

func (s *service) Apply(ctx context.Context, entry domain.QueueEntry) error {
	return s.dispatch.Apply(ctx, entry)
}

func (s *service) applyCreateEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p CreatePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode create payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyNow(ctx, entry.ProfileID, p)
}

func (s *service) applyUpdateEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p UpdatePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode update payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyUpdateNow(ctx, entry.ProfileID, p)
}

func (s *service) applyDeleteEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p DeletePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode delete payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyDeleteNow(ctx, entry.ProfileID, p)
}

func (s *service) arm(ctx context.Context, reminderID string, typ domain.ReminderType, medicine, dose, doctor, notes string, at time.Time) {
	var (
		fireAt    time.Time
		scheduled bool
	)
	switch typ {
	case domain.ReminderMedicine:
		fireAt, scheduled = s.notifier.ScheduleMedicine(ctx, reminderID, medicine, dose, at)
	case domain.ReminderAppointment:
		fireAt, scheduled = s.notifier.ScheduleAppointment(ctx, reminderID, doctor, notes, at)
	default:
		return
	}
	if scheduled {
		slog.Debug("reminder notification scheduled", "reminder_id", reminderID, "fire_at", fireAt)
	}
}

// rearm folds an update into the reminder's pending notification. Completing a
// reminder cancels it; changing its time or labels reschedules it.
func (s *service) rearm(ctx context.Context, reminderID string, req domain.UpdateReminderRequest) {
	if req.Completed != nil && *req.Completed {
		s.notifier.Cancel(ctx, reminderID)
		return
	}
	if req.Type == nil && req.ScheduledAt == nil && req.MedicineName == nil && req.Dose == nil && req.DoctorName == nil && req.Notes == nil {
		return
	}

	var cur domain.PendingNotification
	pending, err := s.notifier.Pending(ctx)
	if err != nil {
		slog.Warn("could not read pending notifications", "reminder_id", reminderID, "err", err)
	}
	found := false
	for _, n := range pending {
		if n.ReminderID == reminderID {
			cur, found = n, true
		}
	}
	// The event time comes from the old kind's lead before Type changes.
	eventTime := eventTimeOf(cur)
	if req.Type != nil {
		cur.Type = domain.ReminderType(*req.Type)
	}
	if cur.Type == "" {
		return
	}
	if req.ScheduledAt != nil {
		eventTime = req.ScheduledAt.UTC()
	} else if !found {
		return
	}
	if req.MedicineName != nil {
		cur.MedicineName = *req.MedicineName
	}
	if req.Dose != nil {
		cur.Dose = *req.Dose
	}
	if req.DoctorName != nil {
		cur.DoctorName = *req.DoctorName
	}
	if req.Notes != nil {
		cur.Notes = *req.Notes
	}
	s.arm(ctx, reminderID, cur.Type, cur.MedicineName, cur.Dose, cur.DoctorName, cur.Notes, eventTime)
}

func eventTimeOf(n domain.PendingNotification) time.Time {
	if n.Type == domain.NotificationAppointment {
		return n.ScheduledAt.Add(notifier.AppointmentLead)
	}
	return n.ScheduledAt.Add(notifier.MedicineLead)
}
