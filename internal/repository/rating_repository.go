package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduhire-api/internal/models"
)

// RatingRepository persists ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// CreateForCompletedBooking inserts the rating only if the booking belongs to
// studentID, is COMPLETED and has no rating yet. The status check and the
// uniqueness check happen in the same statement as the insert. It returns
// sql.ErrNoRows when nothing was inserted.
func (r *RatingRepository) CreateForCompletedBooking(ctx context.Context, rating *models.Rating, studentID string) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ratings (id, booking_id, rating, comment, created_at)
		SELECT $1, b.id, $3, $4, $5
		FROM bookings b
		WHERE b.id = $2 AND b.student_id = $6 AND b.status = 'COMPLETED'
		ON CONFLICT (booking_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, rating.ID, rating.BookingID, rating.Score, rating.Comment, rating.CreatedAt, studentID)
	if err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rating insert rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsForBooking reports whether the booking already has a rating.
func (r *RatingRepository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ratings WHERE booking_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, bookingID); err != nil {
		return false, fmt.Errorf("check rating exists: %w", err)
	}
	return exists, nil
}

// TotalsForTutor sums the scores across a tutor's bookings.
func (r *RatingRepository) TotalsForTutor(ctx context.Context, tutorID string) (models.RatingTotals, error) {
	const query = `SELECT COALESCE(SUM(r.rating), 0) AS total, COUNT(r.id) AS count
	FROM ratings r
	JOIN bookings b ON b.id = r.booking_id
	WHERE b.tutor_id = $1`
	var totals models.RatingTotals
	if err := r.db.GetContext(ctx, &totals, query, tutorID); err != nil {
		return models.RatingTotals{}, fmt.Errorf("sum tutor ratings: %w", err)
	}
	return totals, nil
}

// ListForTutor returns a tutor's ratings with reviewer names, newest first.
func (r *RatingRepository) ListForTutor(ctx context.Context, tutorID string) ([]models.RatingWithReviewer, error) {
	const query = `SELECT r.id, r.booking_id, r.rating, r.comment, r.created_at,
		COALESCE(p.name, '') AS reviewer_name
	FROM ratings r
	JOIN bookings b ON b.id = r.booking_id
	LEFT JOIN profiles p ON p.id = b.student_id
	WHERE b.tutor_id = $1
	ORDER BY r.created_at DESC`
	ratings := make([]models.RatingWithReviewer, 0)
	if err := r.db.SelectContext(ctx, &ratings, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor ratings: %w", err)
	}
	return ratings, nil
}
