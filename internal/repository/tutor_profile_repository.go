package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduhire-api/internal/models"
)

const tutorProfileColumns = `user_id, bio, subjects, hourly_rate, availability, qualification, experience_years,
	specialties, profile_image_url, background, languages, created_at, updated_at`

// TutorProfileRepository persists the extended tutor profile.
type TutorProfileRepository struct {
	db *sqlx.DB
}

// NewTutorProfileRepository constructs the repository.
func NewTutorProfileRepository(db *sqlx.DB) *TutorProfileRepository {
	return &TutorProfileRepository{db: db}
}

// FindByUserID returns the tutor profile of a user.
func (r *TutorProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.TutorProfile, error) {
	query := `SELECT ` + tutorProfileColumns + ` FROM tutor_profiles WHERE user_id = $1`
	var profile models.TutorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates the profile or updates it in place in a single statement.
// Nil fields keep their stored value on update and are NULL on create.
func (r *TutorProfileRepository) Upsert(ctx context.Context, userID string, fields models.UpsertTutorProfileRequest, now time.Time) (*models.TutorProfile, error) {
	query := `INSERT INTO tutor_profiles (` + tutorProfileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			bio = COALESCE(EXCLUDED.bio, tutor_profiles.bio),
			subjects = COALESCE(EXCLUDED.subjects, tutor_profiles.subjects),
			hourly_rate = COALESCE(EXCLUDED.hourly_rate, tutor_profiles.hourly_rate),
			availability = COALESCE(EXCLUDED.availability, tutor_profiles.availability),
			qualification = COALESCE(EXCLUDED.qualification, tutor_profiles.qualification),
			experience_years = COALESCE(EXCLUDED.experience_years, tutor_profiles.experience_years),
			specialties = COALESCE(EXCLUDED.specialties, tutor_profiles.specialties),
			profile_image_url = COALESCE(EXCLUDED.profile_image_url, tutor_profiles.profile_image_url),
			background = COALESCE(EXCLUDED.background, tutor_profiles.background),
			languages = COALESCE(EXCLUDED.languages, tutor_profiles.languages),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + tutorProfileColumns
	var profile models.TutorProfile
	err := r.db.GetContext(ctx, &profile, query,
		userID,
		fields.Bio,
		fields.Subjects,
		fields.HourlyRate,
		fields.Availability,
		fields.Qualification,
		fields.ExperienceYears,
		fields.Specialties,
		fields.ProfileImageURL,
		fields.Background,
		fields.Languages,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert tutor profile: %w", err)
	}
	return &profile, nil
}

// ListListings returns every tutor profile joined with the tutor's name.
func (r *TutorProfileRepository) ListListings(ctx context.Context) ([]models.TutorListing, error) {
	const query = `SELECT tp.user_id, tp.bio, tp.subjects, tp.hourly_rate, tp.availability, tp.qualification,
		tp.experience_years, tp.specialties, tp.profile_image_url, tp.background, tp.languages,
		tp.created_at, tp.updated_at, COALESCE(p.name, '') AS name, COALESCE(p.email, '') AS email
	FROM tutor_profiles tp
	LEFT JOIN profiles p ON p.id = tp.user_id
	ORDER BY p.name ASC NULLS LAST, tp.user_id ASC`
	listings := make([]models.TutorListing, 0)
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("list tutor listings: %w", err)
	}
	return listings, nil
}

// FindListing returns a single tutor listing.
func (r *TutorProfileRepository) FindListing(ctx context.Context, userID string) (*models.TutorListing, error) {
	const query = `SELECT tp.user_id, tp.bio, tp.subjects, tp.hourly_rate, tp.availability, tp.qualification,
		tp.experience_years, tp.specialties, tp.profile_image_url, tp.background, tp.languages,
		tp.created_at, tp.updated_at, COALESCE(p.name, '') AS name, COALESCE(p.email, '') AS email
	FROM tutor_profiles tp
	LEFT JOIN profiles p ON p.id = tp.user_id
	WHERE tp.user_id = $1`
	var listing models.TutorListing
	if err := r.db.GetContext(ctx, &listing, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find tutor listing: %w", err)
	}
	return &listing, nil
}
