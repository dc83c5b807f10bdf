package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"salonbook/docstore"
)

// ErrInvalidSession signals a token that is malformed, expired or whose
// session was signed out.
var ErrInvalidSession = errors.New("auth: invalid or expired session")

// Sessions issues and resolves sessions. The token is an HS256 JWT carrying
// the session id; the session document is the source of truth, so deleting it
// revokes the token.
type Sessions struct {
	store  docstore.Store
	secret []byte
	ttl    time.Duration
	newID  func() string
	now    func() time.Time
}

// NewSessions creates a session manager.
func NewSessions(store docstore.Store, jwtSecret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		store:  store,
		secret: []byte(jwtSecret),
		ttl:    ttl,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for issuing and validating.
func (s *Sessions) WithClock(fn func() time.Time) *Sessions {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Issue creates a session for uid and returns it with its signed token.
func (s *Sessions) Issue(ctx context.Context, uid string, role Role, salonID string) (Session, string, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        s.newID(),
		UID:       uid,
		Role:      role,
		SalonID:   salonID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, docstore.Sessions, sess.ID, sessionFields(sess)); err != nil {
		return Session{}, "", fmt.Errorf("auth: store session: %w", err)
	}

	token, err := s.generateToken(sess)
	if err != nil {
		return Session{}, "", fmt.Errorf("auth: generate token: %w", err)
	}
	return sess, token, nil
}

// Verify resolves a token to its live session.
func (s *Sessions) Verify(ctx context.Context, tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidSession
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return Session{}, ErrInvalidSession
	}

	doc, err := s.store.Get(ctx, docstore.Sessions, sid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Session{}, ErrInvalidSession
		}
		return Session{}, fmt.Errorf("auth: load session: %w", err)
	}
	sess := sessionFromDocument(doc)
	if !s.now().Before(sess.ExpiresAt) {
		return Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Revoke ends a session. Revoking an unknown session is a no-op.
func (s *Sessions) Revoke(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, docstore.Sessions, sessionID); err != nil {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	return nil
}

// RevokeAll ends every session of uid except keep.
func (s *Sessions) RevokeAll(ctx context.Context, uid, keep string) error {
	docs, err := s.store.Query(ctx, docstore.Sessions, docstore.Where("uid", docstore.Eq, uid))
	if err != nil {
		return fmt.Errorf("auth: list sessions: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == keep {
			continue
		}
		if err := s.Revoke(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sessions) generateToken(sess Session) (string, error) {
	claims := jwt.MapClaims{
		"sid":  sess.ID,
		"sub":  sess.UID,
		"role": string(sess.Role),
		"exp":  sess.ExpiresAt.Unix(),
		"iat":  sess.IssuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
