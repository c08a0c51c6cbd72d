package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduhire-api/internal/models"
)

// ProfileRepository reads and reconciles identity profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID returns the profile for a user.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, name, email, role, created_at FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// List returns every profile, newest first.
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	const query = `SELECT id, name, email, role, created_at FROM profiles ORDER BY created_at DESC`
	profiles := make([]models.Profile, 0)
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// EnsureFromUser re-creates a missing profile for an identity. Existing rows
// are left untouched.
func (r *ProfileRepository) EnsureFromUser(ctx context.Context, user *models.User) (*models.Profile, error) {
	profile := models.ProfileFromUser(user)
	const query = `INSERT INTO profiles (id, name, email, role, created_at)
		VALUES (:id, :name, :email, :role, :created_at)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return r.FindByID(ctx, user.ID)
}
