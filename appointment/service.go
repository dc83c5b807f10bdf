// Package appointment books appointments and moves them through their status
// lifecycle.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/logging"
	"salonbook/roster"
	"salonbook/salon"
)

var (
	// ErrNotFound signals that the appointment does not exist.
	ErrNotFound = errors.New("appointment: not found")
	// ErrClosed signals a status change on a completed or cancelled appointment.
	ErrClosed = errors.New("appointment: already completed or cancelled")
)

// Service handles the appointment lifecycle.
type Service struct {
	store   docstore.Store
	stylist *roster.Manager
	newID   func() string
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewService creates an appointment service.
func NewService(store docstore.Store, stylists *roster.Manager) *Service {
	return &Service{
		store:   store,
		stylist: stylists,
		newID:   uuid.NewString,
		now:     time.Now,
		log:     logging.Discard(),
	}
}

// WithIDGenerator overrides appointment id generation.
func (s *Service) WithIDGenerator(fn func() string) *Service {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(log logrus.FieldLogger) *Service {
	if log != nil {
		s.log = log
	}
	return s
}

// Create books a pending appointment. The stylist must work at the salon.
func (s *Service) Create(ctx context.Context, in Input) (Appointment, error) {
	if err := in.validate(); err != nil {
		return Appointment{}, err
	}
	if _, err := salon.Load(ctx, s.store, in.SalonID); err != nil {
		return Appointment{}, err
	}
	st, err := s.stylist.Get(ctx, in.StylistID)
	if err != nil {
		return Appointment{}, err
	}
	if st.SalonID != in.SalonID {
		return Appointment{}, apperr.Invalid("stylistId", "does not work at this salon")
	}

	a := Appointment{
		ID:           s.newID(),
		ClientID:     in.ClientID,
		StylistID:    in.StylistID,
		ServiceID:    in.ServiceID,
		SalonID:      in.SalonID,
		Date:         Day(in.Date),
		Time:         in.Time,
		Status:       StatusPending,
		ServicePrice: in.ServicePrice,
		Notes:        in.Notes,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, docstore.Appointments, a.ID, appointmentFields(a)); err != nil {
		return Appointment{}, fmt.Errorf("appointment: create: %w", err)
	}
	s.log.WithFields(logrus.Fields{"salon_id": a.SalonID, "stylist_id": a.StylistID}).Debug("appointment booked")
	return a, nil
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	doc, err := s.store.Get(ctx, docstore.Appointments, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, fmt.Errorf("appointment: get: %w", err)
	}
	return appointmentFromDocument(doc), nil
}

// ListForClient returns a client's appointments by date.
func (s *Service) ListForClient(ctx context.Context, clientID string) ([]Appointment, error) {
	return s.list(ctx, "clientId", clientID)
}

// ListForStylist returns a stylist's appointments by date.
func (s *Service) ListForStylist(ctx context.Context, stylistID string) ([]Appointment, error) {
	return s.list(ctx, "stylistId", stylistID)
}

// ListForSalon returns a salon's appointments by date.
func (s *Service) ListForSalon(ctx context.Context, salonID string) ([]Appointment, error) {
	return s.list(ctx, "salonId", salonID)
}

func (s *Service) list(ctx context.Context, field, value string) ([]Appointment, error) {
	docs, err := s.store.Query(ctx, docstore.Appointments, docstore.Where(field, docstore.Eq, value).Ordered("date", false))
	if err != nil {
		return nil, fmt.Errorf("appointment: list by %s: %w", field, err)
	}
	out := make([]Appointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, appointmentFromDocument(d))
	}
	return out, nil
}

// UpdateStatus moves an open appointment to status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Appointment, error) {
	if !status.Valid() {
		return Appointment{}, apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.transition(ctx, id, status, nil)
}

// Confirm confirms an open appointment at the price the salon charges for
// it. A confirmed appointment can be re-priced until it is completed.
func (s *Service) Confirm(ctx context.Context, id string, price float64) (Appointment, error) {
	if price < 0 {
		return Appointment{}, apperr.Invalid("servicePrice", "must not be negative")
	}
	return s.transition(ctx, id, StatusConfirmed, &price)
}

func (s *Service) transition(ctx context.Context, id string, status Status, price *float64) (Appointment, error) {
	var out Appointment
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(ctx, docstore.Appointments, id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		out = appointmentFromDocument(doc)
		if out.Status == status && (price == nil || out.ServicePrice == *price) {
			return nil
		}
		if out.Status.Final() {
			return ErrClosed
		}

		patch := docstore.Fields{"status": string(status)}
		if price != nil {
			patch["servicePrice"] = *price
			out.ServicePrice = *price
		}
		if status == StatusCancelled {
			at := s.now().UTC()
			patch["cancelledAt"] = at
			out.CancelledAt = &at
		}
		out.Status = status
		return tx.Update(ctx, docstore.Appointments, id, patch)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrClosed) {
			return Appointment{}, err
		}
		return Appointment{}, fmt.Errorf("appointment: update status: %w", err)
	}
	return out, nil
}

// Cancel cancels an open appointment and records when.
func (s *Service) Cancel(ctx context.Context, id string) (Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}
