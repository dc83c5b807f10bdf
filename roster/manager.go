// Package roster manages the stylists of a salon and keeps the salon's cached
// stylistIds list in line with the stylists collection.
//
// The stylists collection is the ground truth: a stylist belongs to the salon
// its salonId names. Salon.stylistIds is a hint that may briefly lag behind
// after a partial failure and is rebuilt by Reconcile.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salonbook/docstore"
	"salonbook/logging"
	"salonbook/salon"
)

// ErrStylistNotFound signals that the stylist does not exist.
var ErrStylistNotFound = errors.New("roster: stylist not found")

// Manager is the Roster Manager.
type Manager struct {
	store docstore.Store
	newID func() string
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewManager creates a roster manager.
func NewManager(store docstore.Store) *Manager {
	return &Manager{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
		log:   logging.Discard(),
	}
}

// WithIDGenerator overrides stylist id generation.
func (m *Manager) WithIDGenerator(fn func() string) *Manager {
	if fn != nil {
		m.newID = fn
	}
	return m
}

// WithClock overrides the time source.
func (m *Manager) WithClock(fn func() time.Time) *Manager {
	if fn != nil {
		m.now = fn
	}
	return m
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(log logrus.FieldLogger) *Manager {
	if log != nil {
		m.log = log
	}
	return m
}

// AddStylist creates the stylist and then links it into the salon's cached
// roster. The two writes are separate: when linking fails the new id is
// returned together with the error and the next Reconcile repairs the cache.
func (m *Manager) AddStylist(ctx context.Context, in StylistInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}
	owner, err := salon.Load(ctx, m.store, in.SalonID)
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	st := Stylist{
		ID:          m.newID(),
		BusinessID:  owner.BusinessID,
		Name:        strings.TrimSpace(in.Name),
		Bio:         in.Bio,
		Specialties: in.Specialties,
		Schedule:    in.Schedule,
		Rating:      DefaultRating,
		SalonID:     owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Create(ctx, docstore.Stylists, st.ID, stylistFields(st)); err != nil {
		return "", fmt.Errorf("roster: create stylist: %w", err)
	}

	if err := m.link(ctx, owner.ID, st.ID); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"salon_id": owner.ID, "stylist_id": st.ID}).
			Warn("stylist created but not linked to salon")
		return st.ID, fmt.Errorf("roster: link stylist: %w", err)
	}
	return st.ID, nil
}

func (m *Manager) link(ctx context.Context, salonID, stylistID string) error {
	return m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		s, err := salon.Load(ctx, tx, salonID)
		if err != nil {
			return err
		}
		if containsID(s.StylistIDs, stylistID) {
			return nil
		}
		ids := append(s.StylistIDs, stylistID)
		return tx.Update(ctx, docstore.Salons, salonID, salon.StylistIDsPatch(ids, m.now().UTC()))
	})
}

// UpdateStylist applies a partial update and returns the stored stylist.
func (m *Manager) UpdateStylist(ctx context.Context, id string, p StylistPatch) (Stylist, error) {
	if err := p.validate(); err != nil {
		return Stylist{}, err
	}
	if err := m.store.Update(ctx, docstore.Stylists, id, p.fields(m.now().UTC())); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Stylist{}, ErrStylistNotFound
		}
		return Stylist{}, fmt.Errorf("roster: update stylist: %w", err)
	}
	return m.Get(ctx, id)
}

// DeleteStylist removes the id from the salon's cached roster and then
// deletes the stylist, both in one transaction. A concurrent Reconcile that
// still sees the stylist conflicts on the salon document instead of
// re-adding a reference to a deleted stylist.
func (m *Manager) DeleteStylist(ctx context.Context, id string) error {
	st, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	err = m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		s, err := salon.Load(ctx, tx, st.SalonID)
		switch {
		case errors.Is(err, salon.ErrNotFound):
		case err != nil:
			return err
		default:
			if ids, changed := removeID(s.StylistIDs, id); changed {
				if err := tx.Update(ctx, docstore.Salons, s.ID, salon.StylistIDsPatch(ids, m.now().UTC())); err != nil {
					return err
				}
			}
		}
		return tx.Delete(ctx, docstore.Stylists, id)
	})
	if err != nil {
		return fmt.Errorf("roster: delete stylist: %w", err)
	}
	return nil
}

// Get returns a stylist by id.
func (m *Manager) Get(ctx context.Context, id string) (Stylist, error) {
	doc, err := m.store.Get(ctx, docstore.Stylists, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Stylist{}, ErrStylistNotFound
		}
		return Stylist{}, fmt.Errorf("roster: get stylist: %w", err)
	}
	return stylistFromDocument(doc), nil
}

// ListStylists returns the salon's stylists from the ground truth. When the
// cached roster disagrees it is rebuilt before returning.
func (m *Manager) ListStylists(ctx context.Context, salonID string) ([]Stylist, error) {
	s, err := salon.Load(ctx, m.store, salonID)
	if err != nil {
		return nil, err
	}
	docs, err := m.store.Query(ctx, docstore.Stylists, docstore.Where("salonId", docstore.Eq, salonID).Ordered("name", false))
	if err != nil {
		return nil, fmt.Errorf("roster: list stylists: %w", err)
	}

	out := make([]Stylist, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, stylistFromDocument(d))
		ids = append(ids, d.ID)
	}

	if _, stale := reconcileIDs(s.StylistIDs, ids); stale {
		if _, err := m.Reconcile(ctx, salonID); err != nil {
			m.log.WithError(err).WithField("salon_id", salonID).Warn("stylist roster reconcile failed")
		}
	}
	return out, nil
}

// Reconcile rebuilds the salon's cached stylistIds from the stylists
// collection and reports whether it changed anything.
func (m *Manager) Reconcile(ctx context.Context, salonID string) (bool, error) {
	var changed bool
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		s, err := salon.Load(ctx, tx, salonID)
		if err != nil {
			return err
		}
		docs, err := tx.Query(ctx, docstore.Stylists, docstore.Where("salonId", docstore.Eq, salonID))
		if err != nil {
			return err
		}
		truth := make([]string, 0, len(docs))
		for _, d := range docs {
			truth = append(truth, d.ID)
		}

		ids, diff := reconcileIDs(s.StylistIDs, truth)
		changed = diff
		if !diff {
			return nil
		}
		return tx.Update(ctx, docstore.Salons, salonID, salon.StylistIDsPatch(ids, m.now().UTC()))
	})
	if err != nil {
		if errors.Is(err, salon.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("roster: reconcile %s: %w", salonID, err)
	}
	if changed {
		m.log.WithField("salon_id", salonID).Info("stylist roster reconciled")
	}
	return changed, nil
}

// ReconcileAll reconciles every salon and returns how many were repaired.
// Failures on one salon do not stop the others.
func (m *Manager) ReconcileAll(ctx context.Context) (int, error) {
	docs, err := m.store.Query(ctx, docstore.Salons, docstore.Query{})
	if err != nil {
		return 0, fmt.Errorf("roster: list salons: %w", err)
	}

	var (
		repaired int
		errs     []error
	)
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		changed, err := m.Reconcile(ctx, d.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}
