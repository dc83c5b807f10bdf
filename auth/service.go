package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"salonbook/docstore"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrEmailInUse signals that a credential already exists for the email.
	ErrEmailInUse = errors.New("auth: email already in use")
)

// MinPasswordLength is the shortest password accepted on creation or change.
const MinPasswordLength = 8

// Credentials is the credential provider. It stores bcrypt hashes in the
// credentials collection of the shared document store, so account creation
// can join a registration transaction.
type Credentials struct {
	store docstore.Store
	cost  int
	newID func() string
	now   func() time.Time
}

// NewCredentials creates a credential provider over store.
func NewCredentials(store docstore.Store) *Credentials {
	return &Credentials{
		store: store,
		cost:  bcrypt.DefaultCost,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// WithIDGenerator overrides uid generation.
func (c *Credentials) WithIDGenerator(fn func() string) *Credentials {
	if fn != nil {
		c.newID = fn
	}
	return c
}

// WithClock overrides the time source.
func (c *Credentials) WithClock(fn func() time.Time) *Credentials {
	if fn != nil {
		c.now = fn
	}
	return c
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (c *Credentials) WithCost(cost int) *Credentials {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		c.cost = cost
	}
	return c
}

// Create writes a new credential through w, which is either the store or a
// transaction the caller is running, and returns the new uid.
func (c *Credentials) Create(ctx context.Context, w docstore.Writer, email, password, displayName string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	key := NormalizeEmail(email)
	if key == "" {
		return "", fmt.Errorf("auth: email is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}

	now := c.now().UTC()
	cred := Credential{
		UID:          c.newID(),
		Email:        key,
		DisplayName:  displayName,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := w.Create(ctx, docstore.Credentials, key, credentialFields(cred)); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return "", ErrEmailInUse
		}
		return "", fmt.Errorf("auth: create credential: %w", err)
	}
	return cred.UID, nil
}

// Verify checks email and password and returns the matching credential.
func (c *Credentials) Verify(ctx context.Context, email, password string) (Credential, error) {
	cred, err := getCredential(ctx, c.store, email)
	if err != nil {
		return Credential{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Credential{}, ErrInvalidCredentials
	}
	return cred, nil
}

// ChangeEmail moves the credential of uid from oldEmail to newEmail inside tx.
func (c *Credentials) ChangeEmail(ctx context.Context, tx docstore.Tx, uid, oldEmail, newEmail string) error {
	cred, err := getCredential(ctx, tx, oldEmail)
	if err != nil {
		return err
	}
	if cred.UID != uid {
		return ErrInvalidCredentials
	}

	newKey := NormalizeEmail(newEmail)
	if newKey == cred.Email {
		return nil
	}
	cred.Email = newKey
	cred.UpdatedAt = c.now().UTC()
	if err := tx.Create(ctx, docstore.Credentials, newKey, credentialFields(cred)); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrEmailInUse
		}
		return fmt.Errorf("auth: claim new email: %w", err)
	}
	if err := tx.Delete(ctx, docstore.Credentials, NormalizeEmail(oldEmail)); err != nil {
		return fmt.Errorf("auth: release old email: %w", err)
	}
	return nil
}

// ChangePassword re-authenticates with the current password and stores a new
// hash.
func (c *Credentials) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	cred, err := c.Verify(ctx, email, currentPassword)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), c.cost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	err = c.store.Update(ctx, docstore.Credentials, cred.Email, docstore.Fields{
		"passwordHash": string(passwordHash),
		"updatedAt":    c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	return nil
}
