// Package salon registers salons together with their owner account and
// serves salon reads and profile updates.
package salon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salonbook/auth"
	"salonbook/docstore"
	"salonbook/identity"
	"salonbook/logging"
)

var (
	// ErrDuplicateBusinessID signals that another salon holds the businessId.
	ErrDuplicateBusinessID = errors.New("salon: business id already registered")
	// ErrCredentialConflict signals that the owner credential was claimed
	// concurrently after the e-mail pre-check passed.
	ErrCredentialConflict = errors.New("salon: owner credential conflict")
	// ErrNotFound signals that the salon does not exist.
	ErrNotFound = errors.New("salon: not found")
)

// Registrar is the Salon Registrar.
type Registrar struct {
	store docstore.Store
	creds *auth.Credentials
	newID func() string
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewRegistrar wires the registrar.
func NewRegistrar(store docstore.Store, creds *auth.Credentials) *Registrar {
	return &Registrar{
		store: store,
		creds: creds,
		newID: uuid.NewString,
		now:   time.Now,
		log:   logging.Discard(),
	}
}

// WithIDGenerator overrides salon id generation.
func (r *Registrar) WithIDGenerator(fn func() string) *Registrar {
	if fn != nil {
		r.newID = fn
	}
	return r
}

// WithClock overrides the time source.
func (r *Registrar) WithClock(fn func() time.Time) *Registrar {
	if fn != nil {
		r.now = fn
	}
	return r
}

// WithLogger sets the logger.
func (r *Registrar) WithLogger(log logrus.FieldLogger) *Registrar {
	if log != nil {
		r.log = log
	}
	return r
}

// RegisterSalon creates the owner credential, the owner profile, the salon
// and its businessId claim in one transaction.
//
// The pre-reads give friendly errors in the common case. The claim document
// keyed by businessId and the credential keyed by e-mail are what actually
// guarantee uniqueness under concurrent registrations.
func (r *Registrar) RegisterSalon(ctx context.Context, in RegistrationInput) (Registration, error) {
	if err := in.validate(); err != nil {
		return Registration{}, err
	}
	businessID := NormalizeBusinessID(in.BusinessID)
	email := auth.NormalizeEmail(in.Email)

	existing, err := r.store.Query(ctx, docstore.Salons, docstore.Where("businessId", docstore.Eq, businessID))
	if err != nil {
		return Registration{}, fmt.Errorf("salon: check business id: %w", err)
	}
	if len(existing) > 0 {
		return Registration{}, ErrDuplicateBusinessID
	}
	taken, err := identity.EmailRegistered(ctx, r.store, email)
	if err != nil {
		return Registration{}, err
	}
	if taken {
		return Registration{}, identity.ErrDuplicateEmail
	}

	salonID := r.newID()
	var ownerID string
	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		now := r.now().UTC()

		err := tx.Create(ctx, docstore.BusinessIDs, businessID, docstore.Fields{"salonId": salonID, "createdAt": now})
		if err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				return ErrDuplicateBusinessID
			}
			return fmt.Errorf("claim business id: %w", err)
		}

		uid, err := r.creds.Create(ctx, tx, email, in.Password, strings.TrimSpace(in.OwnerName))
		if err != nil {
			if errors.Is(err, auth.ErrEmailInUse) {
				return ErrCredentialConflict
			}
			return fmt.Errorf("create owner credential: %w", err)
		}
		ownerID = uid

		err = identity.WriteProfile(ctx, tx, identity.UserProfile{
			ID:        uid,
			Name:      strings.TrimSpace(in.OwnerName),
			Email:     email,
			Role:      auth.RoleOwner,
			SalonID:   salonID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}

		s := Salon{
			ID:          salonID,
			BusinessID:  businessID,
			Name:        strings.TrimSpace(in.Name),
			Description: strings.TrimSpace(in.Description),
			Address:     strings.TrimSpace(in.Address),
			City:        strings.TrimSpace(in.City),
			PostalCode:  strings.TrimSpace(in.PostalCode),
			Phone:       strings.TrimSpace(in.Phone),
			Email:       email,
			OwnerID:     uid,
			ServiceIDs:  []string{},
			StylistIDs:  []string{},
			Rating:      DefaultRating,
			ReviewCount: 0,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(ctx, docstore.Salons, salonID, salonFields(s)); err != nil {
			return fmt.Errorf("write salon: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateBusinessID) || errors.Is(err, ErrCredentialConflict) {
			return Registration{}, err
		}
		return Registration{}, fmt.Errorf("salon: register: %w", err)
	}

	r.log.WithFields(logrus.Fields{"salon_id": salonID, "uid": ownerID}).Info("salon registered")
	return Registration{SalonID: salonID, OwnerID: ownerID}, nil
}

// Get returns a salon by id.
func (r *Registrar) Get(ctx context.Context, id string) (Salon, error) {
	return Load(ctx, r.store, id)
}

// ListByOwner returns the salons owned by ownerID.
func (r *Registrar) ListByOwner(ctx context.Context, ownerID string) ([]Salon, error) {
	docs, err := r.store.Query(ctx, docstore.Salons, docstore.Where("ownerId", docstore.Eq, ownerID).Ordered("createdAt", false))
	if err != nil {
		return nil, fmt.Errorf("salon: list by owner: %w", err)
	}
	out := make([]Salon, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out, nil
}

// Update applies an owner's profile changes. businessId and ownerId are
// immutable.
func (r *Registrar) Update(ctx context.Context, id string, p Patch) (Salon, error) {
	if err := p.validate(); err != nil {
		return Salon{}, err
	}
	if err := r.store.Update(ctx, docstore.Salons, id, p.fields(r.now().UTC())); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Salon{}, ErrNotFound
		}
		return Salon{}, fmt.Errorf("salon: update: %w", err)
	}
	return r.Get(ctx, id)
}
