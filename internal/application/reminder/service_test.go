package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/healthmate-sync/internal/application/notifier"
	"github.com/healthmate-sync/internal/application/queue"
	"github.com/healthmate-sync/internal/application/syncengine"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/infrastructure/kv"
	"github.com/healthmate-sync/internal/pkg/clock/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Create(ctx context.Context, collectionPath string, record map[string]any) (string, error) {
	args := m.Called(ctx, collectionPath, record)
	return args.String(0), args.Error(1)
}
func (m *mockStore) Update(ctx context.Context, path string, partial map[string]any) error {
	return m.Called(ctx, path, partial).Error(0)
}
func (m *mockStore) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type switchGate struct{ online bool }

func (g *switchGate) IsOnline(context.Context) bool { return g.online }

type nopPresenter struct{}

func (nopPresenter) Present(context.Context, domain.Presentation) error { return nil }

var t0 = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store  *mockStore
	gate   *switchGate
	queue  *queue.Queue
	notify *notifier.Scheduler
	svc    Service
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	kvs, err := kv.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvs.Close() })

	f := &fixture{
		store:  &mockStore{},
		gate:   &switchGate{online: online},
		queue:  queue.New("reminders", kvs, queue.KeyReminders),
		notify: notifier.New(kvs, nopPresenter{}, clocktest.New(t0)),
	}
	f.svc = NewService(f.store, f.queue, f.gate, f.notify)
	return f
}

func medicineRequest() domain.CreateReminderRequest {
	return domain.CreateReminderRequest{
		Type:         "medicine",
		MedicineName: "Paracetamol",
		Dose:         "500mg",
		ScheduledAt:  t0.Add(2 * time.Hour),
	}
}

const remindersPath = "profiles/p1/reminders"

// --- tests ---

func TestCreate_OnlineAppliesImmediately(t *testing.T) {
	f := newFixture(t, true)
	var rec map[string]any
	f.store.On("Create", mock.Anything, remindersPath, mock.Anything).
		Run(func(args mock.Arguments) { rec = args.Get(2).(map[string]any) }).
		Return("ignored", nil).Once()

	r, outcome, err := f.svc.Create(context.Background(), "p1", medicineRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Len(t, r.ReminderID, 26)

	assert.Equal(t, r.ReminderID, rec["record_id"])
	assert.Equal(t, "medicine", rec["type"])
	assert.Equal(t, "Paracetamol", rec["medicine_name"])
	assert.Equal(t, domain.ServerTimestamp, rec["created_at"])
	assert.NotContains(t, rec, "doctor_name")

	assert.Zero(t, f.queue.Len(context.Background()))
	assert.Equal(t, []string{r.ReminderID}, f.notify.Armed())
	f.store.AssertExpectations(t)
}

func TestCreate_OfflineQueuesAndStillSchedules(t *testing.T) {
	f := newFixture(t, false)

	r, outcome, err := f.svc.Create(context.Background(), "p1", medicineRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	entries := f.queue.List(context.Background(), "p1")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OpCreate, entries[0].Operation)
	assert.Equal(t, []string{r.ReminderID}, f.notify.Armed())
	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_RemoteFailureFallsBackToQueue(t *testing.T) {
	f := newFixture(t, true)
	f.store.On("Create", mock.Anything, remindersPath, mock.Anything).Return("", errors.New("throttled"))

	_, outcome, err := f.svc.Create(context.Background(), "p1", medicineRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.Equal(t, 1, f.queue.Len(context.Background()))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, "p1", domain.CreateReminderRequest{Type: "vaccine", ScheduledAt: t0})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, _, err = f.svc.Create(ctx, "p1", domain.CreateReminderRequest{Type: "appointment", ScheduledAt: t0})
	assert.ErrorIs(t, err, domain.ErrBadRequest, "appointment needs a doctor")

	assert.Zero(t, f.queue.Len(ctx))
}

func TestCreate_QueuedAndImmediateWriteTheSameRecord(t *testing.T) {
	ctx := context.Background()
	var online, replayed map[string]any

	on := newFixture(t, true)
	on.store.On("Create", mock.Anything, remindersPath, mock.Anything).
		Run(func(args mock.Arguments) { online = args.Get(2).(map[string]any) }).
		Return("", nil)
	r1, _, err := on.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	off := newFixture(t, false)
	off.store.On("Create", mock.Anything, remindersPath, mock.Anything).
		Run(func(args mock.Arguments) { replayed = args.Get(2).(map[string]any) }).
		Return("", nil)
	r2, _, err := off.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	off.gate.online = true
	res := syncengine.New("reminders", off.queue, off.svc, off.gate).Flush(ctx, syncengine.FlushOptions{})
	assert.Equal(t, syncengine.Result{Synced: 1, Remaining: 0}, res)

	assert.Equal(t, r1.ReminderID, online["record_id"])
	assert.Equal(t, r2.ReminderID, replayed["record_id"])
	delete(online, "record_id")
	delete(replayed, "record_id")
	assert.Equal(t, online, replayed)
}

func TestUpdate_CompletedCancelsNotification(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	done := true
	f.store.On("Update", mock.Anything, remindersPath+"/"+r.ReminderID, map[string]any{
		"completed":  true,
		"updated_at": domain.ServerTimestamp,
	}).Return(nil).Once()

	outcome, err := f.svc.Update(ctx, "p1", r.ReminderID, domain.UpdateReminderRequest{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Empty(t, f.notify.Armed())
	pending, err := f.notify.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	f.store.AssertExpectations(t)
}

func TestUpdate_NewTimeReschedules(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	later := t0.Add(5 * time.Hour)
	dose := "1g"
	outcome, err := f.svc.Update(ctx, "p1", r.ReminderID, domain.UpdateReminderRequest{ScheduledAt: &later, Dose: &dose})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	pending, err := f.notify.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, later.Add(-notifier.MedicineLead), pending[0].ScheduledAt)
	assert.Equal(t, "1g", pending[0].Dose)
	assert.Equal(t, "Paracetamol", pending[0].MedicineName)
	assert.Equal(t, 2, f.queue.Len(ctx))
}

func TestUpdate_MissingRecordIsNotQueued(t *testing.T) {
	f := newFixture(t, true)
	notes := "x"
	f.store.On("Update", mock.Anything, remindersPath+"/gone", mock.Anything).
		Return(domain.ErrNotFound)

	_, err := f.svc.Update(context.Background(), "p1", "gone", domain.UpdateReminderRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.queue.Len(context.Background()))
}

func TestDelete_OfflineQueuesAndCancels(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	outcome, err := f.svc.Delete(ctx, "p1", r.ReminderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.Empty(t, f.notify.Armed())

	entries := f.queue.List(ctx, "p1")
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OpDelete, entries[1].Operation)

	f.store.On("Create", mock.Anything, remindersPath, mock.Anything).Return("", nil).Once()
	f.store.On("Delete", mock.Anything, remindersPath+"/"+r.ReminderID).Return(nil).Once()
	f.gate.online = true
	res := syncengine.New("reminders", f.queue, f.svc, f.gate).Flush(ctx, syncengine.FlushOptions{ProfileID: "p1"})
	assert.Equal(t, 2, res.Synced)
	f.store.AssertExpectations(t)
}

func TestApply_RejectsUnknownOperation(t *testing.T) {
	f := newFixture(t, true)
	err := f.svc.Apply(context.Background(), domain.QueueEntry{EntryID: "e1", Operation: "merge", Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, domain.ErrUnknownOperation)
}

func TestApply_DeleteWithoutRecordID(t *testing.T) {
	f := newFixture(t, true)
	err := f.svc.Apply(context.Background(), domain.QueueEntry{EntryID: "e1", ProfileID: "p1", Operation: domain.OpDelete, Payload: []byte(`{}`)})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func recordOps(f *fixture, ops *[]string) {
	f.store.On("Create", mock.Anything, remindersPath, mock.Anything).
		Run(func(mock.Arguments) { *ops = append(*ops, "create") }).Return("", nil)
	f.store.On("Update", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { *ops = append(*ops, "update") }).Return(nil)
	f.store.On("Delete", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { *ops = append(*ops, "delete") }).Return(nil)
}

func TestDelete_OnlineQueuesBehindPendingCreate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	var ops []string
	recordOps(f, &ops)
	f.gate.online = true

	outcome, err := f.svc.Delete(ctx, "p1", r.ReminderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.Empty(t, ops, "nothing reaches the remote store ahead of the queued create")
	assert.Equal(t, 2, f.queue.Len(ctx))

	res := syncengine.New("reminders", f.queue, f.svc, f.gate).Flush(ctx, syncengine.FlushOptions{})
	assert.Equal(t, syncengine.Result{Synced: 2, Remaining: 0}, res)
	assert.Equal(t, []string{"create", "delete"}, ops)
}

func TestUpdate_OnlineQueuesBehindPendingCreate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	var ops []string
	recordOps(f, &ops)
	f.gate.online = true

	notes := "after breakfast"
	outcome, err := f.svc.Update(ctx, "p1", r.ReminderID, domain.UpdateReminderRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.Empty(t, ops)

	res := syncengine.New("reminders", f.queue, f.svc, f.gate).Flush(ctx, syncengine.FlushOptions{})
	assert.Equal(t, syncengine.Result{Synced: 2, Remaining: 0}, res)
	assert.Equal(t, []string{"create", "update"}, ops)
	f.store.AssertCalled(t, "Update", mock.Anything, remindersPath+"/"+r.ReminderID,
		mock.MatchedBy(func(m map[string]any) bool { return m["notes"] == notes }))
}

func TestUpdate_OtherRecordStillAppliesImmediately(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	f.gate.online = true
	f.store.On("Update", mock.Anything, remindersPath+"/other", mock.Anything).Return(nil).Once()

	notes := "x"
	outcome, err := f.svc.Update(ctx, "p1", "other", domain.UpdateReminderRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)
	assert.Equal(t, 1, f.queue.Len(ctx))
	f.store.AssertExpectations(t)
}

func TestUpdate_TypeChangeIsWrittenAndRearmed(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.store.On("Create", mock.Anything, remindersPath, mock.Anything).Return("", nil)
	r, _, err := f.svc.Create(ctx, "p1", medicineRequest())
	require.NoError(t, err)

	typ, doctor := "appointment", "Dr. Lee"
	f.store.On("Update", mock.Anything, remindersPath+"/"+r.ReminderID, mock.MatchedBy(func(m map[string]any) bool {
		return m["type"] == "appointment" && m["doctor_name"] == doctor
	})).Return(nil).Once()

	outcome, err := f.svc.Update(ctx, "p1", r.ReminderID, domain.UpdateReminderRequest{Type: &typ, DoctorName: &doctor})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, outcome)

	pending, err := f.notify.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.NotificationAppointment, pending[0].Type)
	assert.Equal(t, doctor, pending[0].DoctorName)
	assert.Equal(t, t0.Add(2*time.Hour).Add(-notifier.AppointmentLead), pending[0].ScheduledAt)
	f.store.AssertExpectations(t)
}
