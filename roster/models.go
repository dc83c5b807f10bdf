package roster

import (
	"sort"
	"strings"
	"time"

	"salonbook/apperr"
	"salonbook/docstore"
)

// DefaultRating is the rating a stylist starts with.
const DefaultRating = 5.0

// Weekdays accepted as schedule keys.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Shift is one weekday of a stylist's schedule. Start and End are "HH:MM".
type Shift struct {
	Start     string
	End       string
	IsWorking bool
}

// Stylist belongs to exactly one salon through SalonID.
type Stylist struct {
	ID          string
	BusinessID  string
	Name        string
	Bio         string
	Specialties []string
	Schedule    map[string]Shift
	Rating      float64
	SalonID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StylistInput is the data needed to add a stylist to a salon.
type StylistInput struct {
	SalonID     string
	Name        string
	Bio         string
	Specialties []string
	Schedule    map[string]Shift
}

// StylistPatch is a partial stylist update. The owning salon cannot change.
type StylistPatch struct {
	Name        *string
	Bio         *string
	Specialties []string
	Schedule    map[string]Shift
}

// ValidClock reports whether s is a 24h "HH:MM" time.
func ValidClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

func validateSchedule(schedule map[string]Shift) error {
	for day, shift := range schedule {
		if !isWeekday(day) {
			return apperr.Invalid("schedule", "unknown weekday "+day)
		}
		if !shift.IsWorking {
			continue
		}
		if !ValidClock(shift.Start) || !ValidClock(shift.End) {
			return apperr.Invalid("schedule", day+" needs HH:MM start and end")
		}
		if shift.Start >= shift.End {
			return apperr.Invalid("schedule", day+" must end after it starts")
		}
	}
	return nil
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func (in StylistInput) validate() error {
	if strings.TrimSpace(in.SalonID) == "" {
		return apperr.Invalid("salonId", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name", "is required")
	}
	return validateSchedule(in.Schedule)
}

func (p StylistPatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Invalid("name", "must not be empty")
	}
	return validateSchedule(p.Schedule)
}

func (p StylistPatch) fields(now time.Time) docstore.Fields {
	out := docstore.Fields{"updatedAt": now}
	if p.Name != nil {
		out["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Bio != nil {
		out["bio"] = *p.Bio
	}
	if p.Specialties != nil {
		out["specialties"] = append([]string{}, p.Specialties...)
	}
	if p.Schedule != nil {
		out["schedule"] = scheduleFields(p.Schedule)
	}
	return out
}

func scheduleFields(schedule map[string]Shift) map[string]any {
	out := make(map[string]any, len(schedule))
	for day, s := range schedule {
		out[day] = map[string]any{"start": s.Start, "end": s.End, "isWorking": s.IsWorking}
	}
	return out
}

func stylistFields(s Stylist) docstore.Fields {
	specialties := s.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return docstore.Fields{
		"businessId":  s.BusinessID,
		"name":        s.Name,
		"bio":         s.Bio,
		"specialties": append([]string{}, specialties...),
		"schedule":    scheduleFields(s.Schedule),
		"rating":      s.Rating,
		"salonId":     s.SalonID,
		"createdAt":   s.CreatedAt,
		"updatedAt":   s.UpdatedAt,
	}
}

func stylistFromDocument(doc docstore.Document) Stylist {
	schedule := make(map[string]Shift)
	for day := range doc.Fields.Map("schedule") {
		shift := doc.Fields.Map("schedule").Map(day)
		schedule[day] = Shift{
			Start:     shift.String("start"),
			End:       shift.String("end"),
			IsWorking: shift.Bool("isWorking"),
		}
	}
	return Stylist{
		ID:          doc.ID,
		BusinessID:  doc.Fields.String("businessId"),
		Name:        doc.Fields.String("name"),
		Bio:         doc.Fields.String("bio"),
		Specialties: doc.Fields.Strings("specialties"),
		Schedule:    schedule,
		Rating:      doc.Fields.Float("rating"),
		SalonID:     doc.Fields.String("salonId"),
		CreatedAt:   doc.Fields.Time("createdAt"),
		UpdatedAt:   doc.Fields.Time("updatedAt"),
	}
}

// reconcileIDs rebuilds the cached id list from the authoritative ids. Cached
// ids that are still valid keep their position; missing ones are appended in
// sorted order.
func reconcileIDs(cached, truth []string) ([]string, bool) {
	valid := make(map[string]bool, len(truth))
	for _, id := range truth {
		valid[id] = true
	}

	out := make([]string, 0, len(truth))
	seen := make(map[string]bool, len(truth))
	for _, id := range cached {
		if valid[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	var missing []string
	for _, id := range truth {
		if !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	sort.Strings(missing)
	out = append(out, missing...)

	return out, !equalIDs(cached, out)
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func removeID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out, len(out) != len(ids)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
