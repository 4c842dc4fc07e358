package domain

import "time"

// NotificationType distinguishes the two kinds of reminder notifications.
type NotificationType string

const (
	NotificationMedicine    NotificationType = "medicine"
	NotificationAppointment NotificationType = "appointment"
)

// PendingNotification is the persisted record of an armed notification.
// ScheduledAt is the fire time, already offset from the event time.
type PendingNotification struct {
	ReminderID   string           `json:"reminderId"`
	Type         NotificationType `json:"type"`
	MedicineName string           `json:"medicineName,omitempty"`
	Dose         string           `json:"dose,omitempty"`
	DoctorName   string           `json:"doctorName,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	ScheduledAt  time.Time        `json:"scheduledAt"`
}

// Presentation is what gets handed to the notification presentation API.
type Presentation struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}
