package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"salonbook/apperr"
	"salonbook/auth"
	"salonbook/docstore"
)

// UserProfile is the account record stored in users, keyed by credential uid.
type UserProfile struct {
	ID        string
	Name      string
	Email     string
	Role      auth.Role
	SalonID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateEmail rejects addresses that do not parse as a bare addr-spec.
func ValidateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return apperr.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return apperr.Invalid("email", "is not a valid address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	return nil
}

// WriteProfile creates the profile document through w. Registrations call it
// inside their transaction.
func WriteProfile(ctx context.Context, w docstore.Writer, p UserProfile) error {
	fields := docstore.Fields{
		"name":      p.Name,
		"email":     auth.NormalizeEmail(p.Email),
		"role":      string(p.Role),
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
	if p.SalonID != "" {
		fields["salonId"] = p.SalonID
	}
	if err := w.Create(ctx, docstore.Users, p.ID, fields); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return fmt.Errorf("identity: profile %s already exists: %w", p.ID, err)
		}
		return fmt.Errorf("identity: write profile: %w", err)
	}
	return nil
}

// EmailRegistered reports whether a profile already uses email.
func EmailRegistered(ctx context.Context, r docstore.Reader, email string) (bool, error) {
	q := docstore.Where("email", docstore.Eq, auth.NormalizeEmail(email))
	q.Limit = 1
	docs, err := r.Query(ctx, docstore.Users, q)
	if err != nil {
		return false, fmt.Errorf("identity: lookup email: %w", err)
	}
	return len(docs) > 0, nil
}

func profileFromDocument(doc docstore.Document) UserProfile {
	return UserProfile{
		ID:        doc.ID,
		Name:      doc.Fields.String("name"),
		Email:     doc.Fields.String("email"),
		Role:      auth.Role(doc.Fields.String("role")),
		SalonID:   doc.Fields.String("salonId"),
		CreatedAt: doc.Fields.Time("createdAt"),
		UpdatedAt: doc.Fields.Time("updatedAt"),
	}
}
