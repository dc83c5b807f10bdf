package appointment

import (
	"strings"
	"time"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/roster"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Final reports whether no further transition is allowed from s.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment is a booking. ServicePrice is fixed per booking, normally by
// the salon owner on confirmation, so revenue does not follow later price
// list changes.
type Appointment struct {
	ID           string
	ClientID     string
	StylistID    string
	ServiceID    string
	SalonID      string
	Date         time.Time
	Time         string
	Status       Status
	ServicePrice float64
	Notes        string
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

// Input is a booking request.
type Input struct {
	ClientID     string
	StylistID    string
	ServiceID    string
	SalonID      string
	Date         time.Time
	Time         string
	ServicePrice float64
	Notes        string
}

func (in Input) validate() error {
	required := []struct{ field, value string }{
		{"clientId", in.ClientID},
		{"stylistId", in.StylistID},
		{"serviceId", in.ServiceID},
		{"salonId", in.SalonID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.Invalid(r.field, "is required")
		}
	}
	if in.Date.IsZero() {
		return apperr.Invalid("date", "is required")
	}
	if !roster.ValidClock(in.Time) {
		return apperr.Invalid("time", "must be HH:MM")
	}
	if in.ServicePrice < 0 {
		return apperr.Invalid("servicePrice", "must not be negative")
	}
	return nil
}

// Day returns the calendar date t falls on in its own location, as UTC
// midnight. Appointment dates are stored and queried in this form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func appointmentFields(a Appointment) docstore.Fields {
	f := docstore.Fields{
		"clientId":     a.ClientID,
		"stylistId":    a.StylistID,
		"serviceId":    a.ServiceID,
		"salonId":      a.SalonID,
		"date":         a.Date,
		"time":         a.Time,
		"status":       string(a.Status),
		"servicePrice": a.ServicePrice,
		"createdAt":    a.CreatedAt,
	}
	if a.Notes != "" {
		f["notes"] = a.Notes
	}
	return f
}

func appointmentFromDocument(doc docstore.Document) Appointment {
	a := Appointment{
		ID:           doc.ID,
		ClientID:     doc.Fields.String("clientId"),
		StylistID:    doc.Fields.String("stylistId"),
		ServiceID:    doc.Fields.String("serviceId"),
		SalonID:      doc.Fields.String("salonId"),
		Date:         doc.Fields.Time("date"),
		Time:         doc.Fields.String("time"),
		Status:       Status(doc.Fields.String("status")),
		ServicePrice: doc.Fields.Float("servicePrice"),
		Notes:        doc.Fields.String("notes"),
		CreatedAt:    doc.Fields.Time("createdAt"),
	}
	if doc.Fields.Has("cancelledAt") {
		at := doc.Fields.Time("cancelledAt")
		a.CancelledAt = &at
	}
	return a
}
