// Package review records client reviews and maintains each salon's rating.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/salon"
)

// Review is one client's rating of a salon.
type Review struct {
	ID        string
	SalonID   string
	ClientID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Input is a review submission.
type Input struct {
	SalonID  string
	ClientID string
	Rating   int
	Comment  string
}

// Service stores reviews.
type Service struct {
	store docstore.Store
	newID func() string
	now   func() time.Time
}

// NewService creates a review service.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, newID: uuid.NewString, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Submit writes the review and folds it into the salon's running mean rating
// in one transaction. The first review replaces the default rating.
func (s *Service) Submit(ctx context.Context, in Input) (Review, error) {
	if strings.TrimSpace(in.SalonID) == "" {
		return Review{}, apperr.Invalid("salonId", "is required")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return Review{}, apperr.Invalid("clientId", "is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return Review{}, apperr.Invalid("rating", "must be between 1 and 5")
	}

	r := Review{
		ID:        s.newID(),
		SalonID:   in.SalonID,
		ClientID:  in.ClientID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now().UTC(),
	}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		target, err := salon.Load(ctx, tx, in.SalonID)
		if err != nil {
			return err
		}
		err = tx.Create(ctx, docstore.Reviews, r.ID, docstore.Fields{
			"salonId":   r.SalonID,
			"clientId":  r.ClientID,
			"rating":    r.Rating,
			"comment":   r.Comment,
			"createdAt": r.CreatedAt,
		})
		if err != nil {
			return err
		}

		count := target.ReviewCount
		rating := float64(r.Rating)
		if count > 0 {
			rating = (target.Rating*float64(count) + rating) / float64(count+1)
		}
		return tx.Update(ctx, docstore.Salons, target.ID, docstore.Fields{
			"rating":      rating,
			"reviewCount": count + 1,
			"updatedAt":   r.CreatedAt,
		})
	})
	if err != nil {
		return Review{}, fmt.Errorf("review: submit: %w", err)
	}
	return r, nil
}

// List returns a salon's reviews, newest first.
func (s *Service) List(ctx context.Context, salonID string) ([]Review, error) {
	docs, err := s.store.Query(ctx, docstore.Reviews, docstore.Where("salonId", docstore.Eq, salonID).Ordered("createdAt", true))
	if err != nil {
		return nil, fmt.Errorf("review: list: %w", err)
	}
	out := make([]Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, Review{
			ID:        d.ID,
			SalonID:   d.Fields.String("salonId"),
			ClientID:  d.Fields.String("clientId"),
			Rating:    d.Fields.Int("rating"),
			Comment:   d.Fields.String("comment"),
			CreatedAt: d.Fields.Time("createdAt"),
		})
	}
	return out, nil
}
