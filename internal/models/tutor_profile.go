package models

import (
	"strings"
	"time"
)

// UnknownTutorName is displayed when a tutor profile has no matching name.
const UnknownTutorName = UnknownName

// TutorProfile holds the extended, tutor-only teaching attributes. Nil fields
// were never set.
type TutorProfile struct {
	UserID          string    `db:"user_id" json:"user_id"`
	Bio             *string   `db:"bio" json:"bio"`
	Subjects        *string   `db:"subjects" json:"subjects"`
	HourlyRate      *float64  `db:"hourly_rate" json:"hourly_rate"`
	Availability    *string   `db:"availability" json:"availability"`
	Qualification   *string   `db:"qualification" json:"qualification"`
	ExperienceYears *int      `db:"experience_years" json:"experience_years"`
	Specialties     *string   `db:"specialties" json:"specialties"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url"`
	Background      *string   `db:"background" json:"background"`
	Languages       *string   `db:"languages" json:"languages"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TutorListing is a tutor profile joined with the tutor's display name.
type TutorListing struct {
	TutorProfile
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// DisplayName falls back to UnknownTutorName when the profile name is empty.
func (l TutorListing) DisplayName() string {
	if strings.TrimSpace(l.Name) == "" {
		return UnknownTutorName
	}
	return l.Name
}

// Matches applies the directory filter: a case-insensitive substring match on
// subjects or display name. An empty query matches everything.
func (l TutorListing) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	if l.Subjects != nil && strings.Contains(strings.ToLower(*l.Subjects), query) {
		return true
	}
	return strings.Contains(strings.ToLower(l.DisplayName()), query)
}

// TutorDetail is the public tutor page payload.
type TutorDetail struct {
	Listing TutorListing  `json:"tutor"`
	Rating  RatingSummary `json:"rating"`
}

// UpsertTutorProfileRequest carries the fields to write. Omitted fields keep
// their stored value.
type UpsertTutorProfileRequest struct {
	Bio             *string  `json:"bio" validate:"omitempty,max=4000"`
	Subjects        *string  `json:"subjects" validate:"omitempty,max=1000"`
	HourlyRate      *float64 `json:"hourly_rate" validate:"omitempty,gte=0"`
	Availability    *string  `json:"availability" validate:"omitempty,max=1000"`
	Qualification   *string  `json:"qualification" validate:"omitempty,max=500"`
	ExperienceYears *int     `json:"experience_years" validate:"omitempty,gte=0,lte=80"`
	Specialties     *string  `json:"specialties" validate:"omitempty,max=1000"`
	ProfileImageURL *string  `json:"profile_image_url" validate:"omitempty,url"`
	Background      *string  `json:"background" validate:"omitempty,max=4000"`
	Languages       *string  `json:"languages" validate:"omitempty,max=500"`
}

// SplitSubjects splits on commas, trims and drops empty entries.
func SplitSubjects(raw string) []string {
	parts := strings.Split(raw, ",")
	subjects := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			subjects = append(subjects, trimmed)
		}
	}
	return subjects
}

// NormalizeSubjects rewrites a subject list into its canonical "a, b" form.
func NormalizeSubjects(raw string) string {
	return strings.Join(SplitSubjects(raw), ", ")
}
