package notifier

import (
	"fmt"

	"github.com/healthmate-sync/internal/domain"
)

func presentation(n domain.PendingNotification) domain.Presentation {
	data := map[string]string{
		"reminderId": n.ReminderID,
		"type":       string(n.Type),
	}
	switch n.Type {
	case domain.NotificationAppointment:
		data["doctorName"] = n.DoctorName
		data["notes"] = n.Notes
		body := fmt.Sprintf("Appointment with %s in 1 hour", n.DoctorName)
		if n.Notes != "" {
			body += ". " + n.Notes
		}
		return domain.Presentation{Title: "Appointment Reminder", Body: body, Data: data}
	default:
		data["medicineName"] = n.MedicineName
		data["dose"] = n.Dose
		body := fmt.Sprintf("Time to take %s", n.MedicineName)
		if n.Dose != "" {
			body += fmt.Sprintf(" (%s)", n.Dose)
		}
		return domain.Presentation{Title: "Medicine Reminder", Body: body, Data: data}
	}
}
