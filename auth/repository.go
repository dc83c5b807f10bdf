package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salonbook/docstore"
)

// NormalizeEmail trims and lower-cases an address. Every e-mail key and
// e-mail comparison goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func credentialFields(c Credential) docstore.Fields {
	return docstore.Fields{
		"uid":          c.UID,
		"email":        c.Email,
		"displayName":  c.DisplayName,
		"passwordHash": c.PasswordHash,
		"createdAt":    c.CreatedAt,
		"updatedAt":    c.UpdatedAt,
	}
}

func credentialFromDocument(doc docstore.Document) Credential {
	return Credential{
		UID:          doc.Fields.String("uid"),
		Email:        doc.Fields.String("email"),
		DisplayName:  doc.Fields.String("displayName"),
		PasswordHash: doc.Fields.String("passwordHash"),
		CreatedAt:    doc.Fields.Time("createdAt"),
		UpdatedAt:    doc.Fields.Time("updatedAt"),
	}
}

// getCredential loads the credential stored under email.
func getCredential(ctx context.Context, r docstore.Reader, email string) (Credential, error) {
	doc, err := r.Get(ctx, docstore.Credentials, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Credential{}, ErrInvalidCredentials
		}
		return Credential{}, fmt.Errorf("auth: get credential: %w", err)
	}
	return credentialFromDocument(doc), nil
}

func sessionFields(s Session) docstore.Fields {
	return docstore.Fields{
		"uid":       s.UID,
		"role":      string(s.Role),
		"salonId":   s.SalonID,
		"issuedAt":  s.IssuedAt,
		"expiresAt": s.ExpiresAt,
	}
}

func sessionFromDocument(doc docstore.Document) Session {
	return Session{
		ID:        doc.ID,
		UID:       doc.Fields.String("uid"),
		Role:      Role(doc.Fields.String("role")),
		SalonID:   doc.Fields.String("salonId"),
		IssuedAt:  doc.Fields.Time("issuedAt"),
		ExpiresAt: doc.Fields.Time("expiresAt"),
	}
}
