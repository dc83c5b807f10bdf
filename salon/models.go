package salon

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/identity"
)

// DefaultRating is the rating a salon starts with before any review.
const DefaultRating = 5.0

// Salon is the business record. StylistIDs is a cache of the stylists whose
// salonId points here; the stylists collection is authoritative.
type Salon struct {
	ID          string
	BusinessID  string
	Name        string
	Description string
	Address     string
	City        string
	PostalCode  string
	Phone       string
	Email       string
	OwnerID     string
	ServiceIDs  []string
	StylistIDs  []string
	Rating      float64
	ReviewCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegistrationInput is everything needed to open a salon and its owner account.
type RegistrationInput struct {
	BusinessID  string
	Name        string
	Description string
	Address     string
	City        string
	PostalCode  string
	Phone       string
	Email       string
	OwnerName   string
	Password    string
}

// Registration identifies the records created by RegisterSalon.
type Registration struct {
	SalonID string
	OwnerID string
}

// Patch lists the salon fields an owner may change. Nil fields are left as is.
type Patch struct {
	Name        *string
	Description *string
	Address     *string
	City        *string
	PostalCode  *string
	Phone       *string
	Email       *string
	ServiceIDs  []string
}

var (
	businessIDPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,31}$`)
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneNoise        = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizeBusinessID upper-cases the identifier and strips whitespace.
func NormalizeBusinessID(id string) string {
	return strings.ToUpper(strings.Join(strings.Fields(id), ""))
}

// ValidatePhone checks if a phone number is in a valid international format.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phoneNoise.Replace(phone))
}

func (in RegistrationInput) validate() error {
	if !businessIDPattern.MatchString(NormalizeBusinessID(in.BusinessID)) {
		return apperr.Invalid("businessId", "must be 2-32 letters, digits or dashes")
	}
	required := []struct{ field, value string }{
		{"name", in.Name},
		{"address", in.Address},
		{"city", in.City},
		{"postalCode", in.PostalCode},
		{"ownerName", in.OwnerName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.Invalid(r.field, "is required")
		}
	}
	if !ValidatePhone(in.Phone) {
		return apperr.Invalid("phone", "must be in international format")
	}
	if err := identity.ValidateEmail(in.Email); err != nil {
		return err
	}
	return identity.ValidatePassword(in.Password)
}

func (p Patch) validate() error {
	for field, v := range map[string]*string{"name": p.Name, "address": p.Address, "city": p.City, "postalCode": p.PostalCode} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return apperr.Invalid(field, "must not be empty")
		}
	}
	if p.Phone != nil && !ValidatePhone(*p.Phone) {
		return apperr.Invalid("phone", "must be in international format")
	}
	if p.Email != nil {
		return identity.ValidateEmail(*p.Email)
	}
	return nil
}

func (p Patch) fields(now time.Time) docstore.Fields {
	out := docstore.Fields{"updatedAt": now}
	set := func(key string, v *string) {
		if v != nil {
			out[key] = strings.TrimSpace(*v)
		}
	}
	set("name", p.Name)
	set("description", p.Description)
	set("address", p.Address)
	set("city", p.City)
	set("postalCode", p.PostalCode)
	set("phone", p.Phone)
	if p.Email != nil {
		out["email"] = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.ServiceIDs != nil {
		out["serviceIds"] = append([]string{}, p.ServiceIDs...)
	}
	return out
}

func salonFields(s Salon) docstore.Fields {
	return docstore.Fields{
		"businessId":  s.BusinessID,
		"name":        s.Name,
		"description": s.Description,
		"address":     s.Address,
		"city":        s.City,
		"postalCode":  s.PostalCode,
		"phone":       s.Phone,
		"email":       s.Email,
		"ownerId":     s.OwnerID,
		"serviceIds":  append([]string{}, s.ServiceIDs...),
		"stylistIds":  append([]string{}, s.StylistIDs...),
		"rating":      s.Rating,
		"reviewCount": s.ReviewCount,
		"createdAt":   s.CreatedAt,
		"updatedAt":   s.UpdatedAt,
	}
}

// FromDocument decodes a salons document.
func FromDocument(doc docstore.Document) Salon {
	return Salon{
		ID:          doc.ID,
		BusinessID:  doc.Fields.String("businessId"),
		Name:        doc.Fields.String("name"),
		Description: doc.Fields.String("description"),
		Address:     doc.Fields.String("address"),
		City:        doc.Fields.String("city"),
		PostalCode:  doc.Fields.String("postalCode"),
		Phone:       doc.Fields.String("phone"),
		Email:       doc.Fields.String("email"),
		OwnerID:     doc.Fields.String("ownerId"),
		ServiceIDs:  doc.Fields.Strings("serviceIds"),
		StylistIDs:  doc.Fields.Strings("stylistIds"),
		Rating:      doc.Fields.Float("rating"),
		ReviewCount: doc.Fields.Int("reviewCount"),
		CreatedAt:   doc.Fields.Time("createdAt"),
		UpdatedAt:   doc.Fields.Time("updatedAt"),
	}
}

// Load reads a salon through r, which may be a transaction.
func Load(ctx context.Context, r docstore.Reader, id string) (Salon, error) {
	doc, err := r.Get(ctx, docstore.Salons, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Salon{}, ErrNotFound
		}
		return Salon{}, fmt.Errorf("salon: load %s: %w", id, err)
	}
	return FromDocument(doc), nil
}

// StylistIDsPatch is the update that rewrites the cached roster.
func StylistIDsPatch(ids []string, now time.Time) docstore.Fields {
	return docstore.Fields{"stylistIds": append([]string{}, ids...), "updatedAt": now}
}
