package auth

import "time"

type Role string

const (
	RoleOwner   Role = "owner"
	RoleClient  Role = "client"
	RoleStylist Role = "stylist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleClient, RoleStylist:
		return true
	default:
		return false
	}
}

// Credential is the sign-in record of an account. It is keyed by normalised
// e-mail so the store's key uniqueness guards against duplicate accounts.
type Credential struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the explicit signed-in context handed to workflows acting on
// behalf of a user. It lives from sign-in until sign-out or expiry.
type Session struct {
	ID        string
	UID       string
	Role      Role
	SalonID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
