package domain

import "time"

type ReminderType = NotificationType

const (
	ReminderMedicine    = NotificationMedicine
	ReminderAppointment = NotificationAppointment
)

// Reminder is the remote record of the reminders collection.
type Reminder struct {
	ReminderID   string       `json:"id" dynamodbav:"record_id"`
	ProfileID    string       `json:"profile_id" dynamodbav:"profile_id"`
	Type         ReminderType `json:"type" dynamodbav:"type"`
	MedicineName string       `json:"medicine_name,omitempty" dynamodbav:"medicine_name"`
	Dose         string       `json:"dose,omitempty" dynamodbav:"dose"`
	DoctorName   string       `json:"doctor_name,omitempty" dynamodbav:"doctor_name"`
	Notes        string       `json:"notes,omitempty" dynamodbav:"notes"`
	ScheduledAt  time.Time    `json:"scheduled_at" dynamodbav:"scheduled_at"` // event time, not fire time
	Completed    bool         `json:"completed" dynamodbav:"completed"`
}

type CreateReminderRequest struct {
	Type         string    `json:"type" validate:"required,oneof=medicine appointment"`
	MedicineName string    `json:"medicine_name" validate:"required_if=Type medicine"`
	Dose         string    `json:"dose"`
	DoctorName   string    `json:"doctor_name" validate:"required_if=Type appointment"`
	Notes        string    `json:"notes"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

// UpdateReminderRequest carries the fields to change. A Type change is written
// to the record and re-arms the notification under the new kind.
type UpdateReminderRequest struct {
	Type         *string    `json:"type" validate:"omitempty,oneof=medicine appointment"`
	MedicineName *string    `json:"medicine_name"`
	Dose         *string    `json:"dose"`
	DoctorName   *string    `json:"doctor_name"`
	Notes        *string    `json:"notes"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Completed    *bool      `json:"completed"`
}
