// Package identity registers client accounts and manages the signed-in
// lifecycle of every account: sign-in, sign-out, profile lookup and
// credential changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"salonbook/apperr"
	"salonbook/auth"
	"salonbook/docstore"
	"salonbook/logging"
)

var (
	// ErrDuplicateEmail signals that the email is already registered.
	ErrDuplicateEmail = errors.New("identity: email already registered")
	// ErrProfileNotFound signals a session whose profile no longer exists.
	ErrProfileNotFound = errors.New("identity: profile not found")
)

// Service is the Identity Registrar.
type Service struct {
	store    docstore.Store
	creds    *auth.Credentials
	sessions *auth.Sessions
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewService wires the registrar to its store and auth providers.
func NewService(store docstore.Store, creds *auth.Credentials, sessions *auth.Sessions) *Service {
	return &Service{
		store:    store,
		creds:    creds,
		sessions: sessions,
		now:      time.Now,
		log:      logging.Discard(),
	}
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

// RegisterClient creates a credential and a client profile. Both writes
// commit in one transaction.
func (s *Service) RegisterClient(ctx context.Context, name, email, password string) (UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserProfile{}, apperr.Invalid("name", "is required")
	}
	if err := ValidateEmail(email); err != nil {
		return UserProfile{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return UserProfile{}, err
	}
	email = auth.NormalizeEmail(email)

	taken, err := EmailRegistered(ctx, s.store, email)
	if err != nil {
		return UserProfile{}, err
	}
	if taken {
		return UserProfile{}, ErrDuplicateEmail
	}

	var profile UserProfile
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		uid, err := s.creds.Create(ctx, tx, email, password, name)
		if err != nil {
			if errors.Is(err, auth.ErrEmailInUse) {
				return ErrDuplicateEmail
			}
			return err
		}
		now := s.now().UTC()
		profile = UserProfile{
			ID:        uid,
			Name:      name,
			Email:     email,
			Role:      auth.RoleClient,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return WriteProfile(ctx, tx, profile)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return UserProfile{}, err
		}
		return UserProfile{}, fmt.Errorf("identity: register client: %w", err)
	}

	s.log.WithField("uid", profile.ID).Info("client registered")
	return profile, nil
}

// SignIn verifies the credential and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (auth.Session, string, error) {
	cred, err := s.creds.Verify(ctx, email, password)
	if err != nil {
		return auth.Session{}, "", err
	}
	profile, err := s.GetProfile(ctx, cred.UID)
	if err != nil {
		return auth.Session{}, "", err
	}
	return s.sessions.Issue(ctx, profile.ID, profile.Role, profile.SalonID)
}

// SignOut invalidates sess.
func (s *Service) SignOut(ctx context.Context, sess auth.Session) error {
	return s.sessions.Revoke(ctx, sess.ID)
}

// Profile returns the profile of the signed-in user.
func (s *Service) Profile(ctx context.Context, sess auth.Session) (UserProfile, error) {
	return s.GetProfile(ctx, sess.UID)
}

// GetProfile loads a profile by uid.
func (s *Service) GetProfile(ctx context.Context, uid string) (UserProfile, error) {
	doc, err := s.store.Get(ctx, docstore.Users, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return UserProfile{}, ErrProfileNotFound
		}
		return UserProfile{}, fmt.Errorf("identity: get profile: %w", err)
	}
	return profileFromDocument(doc), nil
}

// ChangeEmail re-authenticates the user, then moves the credential and the
// profile to newEmail in one transaction.
func (s *Service) ChangeEmail(ctx context.Context, sess auth.Session, newEmail, password string) (UserProfile, error) {
	if err := ValidateEmail(newEmail); err != nil {
		return UserProfile{}, err
	}
	newEmail = auth.NormalizeEmail(newEmail)

	profile, err := s.Profile(ctx, sess)
	if err != nil {
		return UserProfile{}, err
	}
	if _, err := s.creds.Verify(ctx, profile.Email, password); err != nil {
		return UserProfile{}, err
	}
	if newEmail == profile.Email {
		return profile, nil
	}

	taken, err := EmailRegistered(ctx, s.store, newEmail)
	if err != nil {
		return UserProfile{}, err
	}
	if taken {
		return UserProfile{}, ErrDuplicateEmail
	}

	now := s.now().UTC()
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := s.creds.ChangeEmail(ctx, tx, profile.ID, profile.Email, newEmail); err != nil {
			if errors.Is(err, auth.ErrEmailInUse) {
				return ErrDuplicateEmail
			}
			return err
		}
		return tx.Update(ctx, docstore.Users, profile.ID, docstore.Fields{"email": newEmail, "updatedAt": now})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, auth.ErrInvalidCredentials) {
			return UserProfile{}, err
		}
		return UserProfile{}, fmt.Errorf("identity: change email: %w", err)
	}

	profile.Email = newEmail
	profile.UpdatedAt = now
	return profile, nil
}

// ChangePassword re-authenticates, stores the new password and signs out
// every other session of the user.
func (s *Service) ChangePassword(ctx context.Context, sess auth.Session, currentPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	profile, err := s.Profile(ctx, sess)
	if err != nil {
		return err
	}
	if err := s.creds.ChangePassword(ctx, profile.Email, currentPassword, newPassword); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, profile.ID, sess.ID); err != nil {
		s.log.WithError(err).WithField("uid", profile.ID).Warn("password changed but other sessions were not revoked")
	}
	return nil
}
