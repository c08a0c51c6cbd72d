package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduhire-api/internal/models"
)

const bookingColumns = `id, student_id, tutor_id, start_time, end_time, status, created_at, updated_at`

// BookingRepository persists bookings and their lifecycle.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new booking in PENDING state.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.Status = models.BookingStatusPending
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt
	const query = `INSERT INTO bookings (id, student_id, tutor_id, start_time, end_time, status, created_at, updated_at)
		VALUES (:id, :student_id, :tutor_id, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID fetches a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// UpdateStatusParams describes a tutor decision on a pending booking.
type UpdateStatusParams struct {
	ID        string
	TutorID   string
	Status    models.BookingStatus
	UpdatedAt time.Time
}

// UpdatePendingStatus moves a PENDING booking owned by the tutor to the new
// status in one conditional write. Accepting also requires that the tutor has
// no overlapping ACCEPTED booking. It returns sql.ErrNoRows when any guard
// fails and ErrOverlap when the store's exclusion constraint rejects the row.
func (r *BookingRepository) UpdatePendingStatus(ctx context.Context, params UpdateStatusParams) (*models.Booking, error) {
	query := `UPDATE bookings SET status = $3, updated_at = $4
		WHERE id = $1 AND tutor_id = $2 AND status = 'PENDING'`
	if params.Status == models.BookingStatusAccepted {
		query += `
		AND NOT EXISTS (
			SELECT 1 FROM bookings other
			WHERE other.tutor_id = bookings.tutor_id
				AND other.id <> bookings.id
				AND other.status = 'ACCEPTED'
				AND other.start_time < bookings.end_time
				AND bookings.start_time < other.end_time
		)`
	}
	query += `
		RETURNING ` + bookingColumns

	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, params.ID, params.TutorID, params.Status, params.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if pqCode(err) == pqExclusionViolation {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return &booking, nil
}

// HasAcceptedOverlap reports whether the tutor has an ACCEPTED booking other
// than excludeID intersecting [start, end).
func (r *BookingRepository) HasAcceptedOverlap(ctx context.Context, tutorID, excludeID string, start, end time.Time) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE tutor_id = $1 AND id <> $2 AND status = 'ACCEPTED'
			AND start_time < $4 AND $3 < end_time
	)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tutorID, excludeID, start, end); err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}
	return exists, nil
}

// CompleteElapsed marks every ACCEPTED booking whose end time has passed as
// COMPLETED and returns how many rows moved.
func (r *BookingRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE bookings SET status = 'COMPLETED', updated_at = $1
		WHERE status = 'ACCEPTED' AND end_time <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed bookings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check completed booking rows: %w", err)
	}
	return rows, nil
}

// ListForStudent returns a student's bookings with tutor details, latest start first.
func (r *BookingRepository) ListForStudent(ctx context.Context, studentID string) ([]models.StudentBooking, error) {
	const query = `SELECT b.id, b.student_id, b.tutor_id, b.start_time, b.end_time, b.status, b.created_at, b.updated_at,
		COALESCE(p.name, '') AS tutor_name,
		COALESCE(p.email, '') AS tutor_email,
		tp.hourly_rate AS tutor_hourly_rate,
		EXISTS (SELECT 1 FROM ratings r WHERE r.booking_id = b.id) AS rated
	FROM bookings b
	LEFT JOIN profiles p ON p.id = b.tutor_id
	LEFT JOIN tutor_profiles tp ON tp.user_id = b.tutor_id
	WHERE b.student_id = $1
	ORDER BY b.start_time DESC`
	bookings := make([]models.StudentBooking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, studentID); err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return bookings, nil
}

// ListForTutor returns a tutor's bookings with student details, latest start first.
func (r *BookingRepository) ListForTutor(ctx context.Context, tutorID string) ([]models.TutorBooking, error) {
	const query = `SELECT b.id, b.student_id, b.tutor_id, b.start_time, b.end_time, b.status, b.created_at, b.updated_at,
		COALESCE(p.name, '') AS student_name,
		COALESCE(p.email, '') AS student_email
	FROM bookings b
	LEFT JOIN profiles p ON p.id = b.student_id
	WHERE b.tutor_id = $1
	ORDER BY b.start_time DESC`
	bookings := make([]models.TutorBooking, 0)
	if err := r.db.SelectContext(ctx, &bookings, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor bookings: %w", err)
	}
	return bookings, nil
}

// ListWithNames returns every booking with both party names, newest first.
func (r *BookingRepository) ListWithNames(ctx context.Context) ([]models.BookingWithNames, error) {
	const query = `SELECT b.id, b.student_id, b.tutor_id, b.start_time, b.end_time, b.status, b.created_at, b.updated_at,
		COALESCE(s.name, '') AS student_name,
		COALESCE(t.name, '') AS tutor_name
	FROM bookings b
	LEFT JOIN profiles s ON s.id = b.student_id
	LEFT JOIN profiles t ON t.id = b.tutor_id
	ORDER BY b.created_at DESC`
	bookings := make([]models.BookingWithNames, 0)
	if err := r.db.SelectContext(ctx, &bookings, query); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
