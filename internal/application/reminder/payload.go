package reminder

import (
	"time"

	"github.com/healthmate-sync/internal/domain"
)

// Queue payloads. Both the immediate and the queued paths turn them into
// remote records through record and fields, so a replayed mutation writes
// exactly what an online one would have.

type CreatePayload struct {
	RecordID     string              `json:"record_id"`
	Type         domain.ReminderType `json:"type"`
	MedicineName string              `json:"medicine_name,omitempty"`
	Dose         string              `json:"dose,omitempty"`
	DoctorName   string              `json:"doctor_name,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	ScheduledAt  time.Time           `json:"scheduled_at"`
}

type UpdatePayload struct {
	RecordID string                       `json:"record_id"`
	Fields   domain.UpdateReminderRequest `json:"fields"`
}

type DeletePayload struct {
	RecordID string `json:"record_id"`
}

func createPayloadFrom(r *domain.Reminder) CreatePayload {
	return CreatePayload{
		RecordID:     r.ReminderID,
		Type:         r.Type,
		MedicineName: r.MedicineName,
		Dose:         r.Dose,
		DoctorName:   r.DoctorName,
		Notes:        r.Notes,
		ScheduledAt:  r.ScheduledAt,
	}
}

func (p CreatePayload) record() map[string]any {
	rec := map[string]any{
		"record_id":    p.RecordID,
		"type":         string(p.Type),
		"scheduled_at": p.ScheduledAt.UTC().Format(time.RFC3339),
		"completed":    false,
		"created_at":   domain.ServerTimestamp,
		"updated_at":   domain.ServerTimestamp,
	}
	switch p.Type {
	case domain.ReminderMedicine:
		rec["medicine_name"] = p.MedicineName
		rec["dose"] = p.Dose
	case domain.ReminderAppointment:
		rec["doctor_name"] = p.DoctorName
		rec["notes"] = p.Notes
	}
	return rec
}

func (p UpdatePayload) fields() map[string]any {
	f := p.Fields
	out := map[string]any{"updated_at": domain.ServerTimestamp}
	if f.Type != nil {
		out["type"] = *f.Type
	}
	if f.MedicineName != nil {
		out["medicine_name"] = *f.MedicineName
	}
	if f.Dose != nil {
		out["dose"] = *f.Dose
	}
	if f.DoctorName != nil {
		out["doctor_name"] = *f.DoctorName
	}
	if f.Notes != nil {
		out["notes"] = *f.Notes
	}
	if f.ScheduledAt != nil {
		out["scheduled_at"] = f.ScheduledAt.UTC().Format(time.RFC3339)
	}
	if f.Completed != nil {
		out["completed"] = *f.Completed
	}
	return out
}
