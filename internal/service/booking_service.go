package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/internal/repository"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	UpdatePendingStatus(ctx context.Context, params repository.UpdateStatusParams) (*models.Booking, error)
	HasAcceptedOverlap(ctx context.Context, tutorID, excludeID string, start, end time.Time) (bool, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentBooking, error)
	ListForTutor(ctx context.Context, tutorID string) ([]models.TutorBooking, error)
	ListWithNames(ctx context.Context) ([]models.BookingWithNames, error)
}

// BookingServiceParams groups constructor dependencies.
type BookingServiceParams struct {
	Bookings  bookingRepository
	Profiles  profileReader
	Audit     auditRecorder
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// BookingService owns the booking lifecycle:
//
//	PENDING -> ACCEPTED | REJECTED   (tutor decision)
//	ACCEPTED -> COMPLETED            (automatic once end_time has passed)
type BookingService struct {
	bookings  bookingRepository
	profiles  profileReader
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(params BookingServiceParams) *BookingService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings:  params.Bookings,
		profiles:  params.Profiles,
		audit:     params.Audit,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create requests a session with a tutor. The booking always starts PENDING.
func (s *BookingService) Create(ctx context.Context, session models.SessionContext, req models.CreateBookingRequest) (*models.Booking, error) {
	if session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "sign in required")
	}
	if session.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book sessions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid booking payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	tutor, err := s.profiles.FindByID(ctx, req.TutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Store(err, "failed to load tutor")
	}
	if tutor.Role != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
	}

	booking := &models.Booking{
		StudentID: session.UserID,
		TutorID:   tutor.ID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		CreatedAt: s.now(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Store(err, "failed to create booking")
	}

	s.metrics.RecordBookingTransition("", models.BookingStatusPending, 1)
	s.record(ctx, session.UserID, models.AuditActionBookingCreate, booking.ID, fmt.Sprintf(`{"tutor_id":%q}`, booking.TutorID))
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("student_id", booking.StudentID),
		zap.String("tutor_id", booking.TutorID),
	)
	return booking, nil
}

// SetStatus records the tutor's decision on a pending booking. Accepting a
// booking that overlaps another accepted booking of the same tutor is a
// Conflict. COMPLETED is never set by hand.
func (s *BookingService) SetStatus(ctx context.Context, session models.SessionContext, bookingID string, req models.UpdateBookingStatusRequest) (*models.Booking, error) {
	if session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "sign in required")
	}
	if session.Role != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only tutors can change booking status")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	current, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Store(err, "failed to load booking")
	}
	if current.TutorID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking's tutor can change its status")
	}
	if req.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "bookings are completed automatically after they end")
	}
	if !current.Status.CanTransitionTo(req.Status) {
		return nil, invalidTransition(current.Status, req.Status)
	}

	updated, err := s.bookings.UpdatePendingStatus(ctx, repository.UpdateStatusParams{
		ID:        current.ID,
		TutorID:   session.UserID,
		Status:    req.Status,
		UpdatedAt: s.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, overlapConflict()
		case errors.Is(err, sql.ErrNoRows):
			return nil, s.explainRejectedUpdate(ctx, current, req.Status)
		default:
			return nil, appErrors.Store(err, "failed to update booking status")
		}
	}

	s.metrics.RecordBookingTransition(current.Status, updated.Status, 1)
	s.record(ctx, session.UserID, models.AuditActionBookingStatus, updated.ID,
		fmt.Sprintf(`{"from":%q,"to":%q}`, current.Status, updated.Status))
	s.logger.Info("booking status changed",
		zap.String("booking_id", updated.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

// explainRejectedUpdate works out why the conditional update matched no row.
func (s *BookingService) explainRejectedUpdate(ctx context.Context, current *models.Booking, next models.BookingStatus) error {
	latest, err := s.bookings.FindByID(ctx, current.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Store(err, "failed to reload booking")
	}
	if latest.Status != models.BookingStatusPending {
		return invalidTransition(latest.Status, next)
	}
	if next == models.BookingStatusAccepted {
		overlap, err := s.bookings.HasAcceptedOverlap(ctx, latest.TutorID, latest.ID, latest.StartTime, latest.EndTime)
		if err != nil {
			return appErrors.Store(err, "failed to check booking overlap")
		}
		if overlap {
			return overlapConflict()
		}
	}
	return appErrors.Clone(appErrors.ErrConflict, "booking changed concurrently, retry")
}

// CompleteElapsed moves every ACCEPTED booking that has ended to COMPLETED.
func (s *BookingService) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	completed, err := s.bookings.CompleteElapsed(ctx, now.UTC())
	s.metrics.ObserveDBQuery("bookings_complete_elapsed", time.Since(start))
	s.metrics.RecordCompletionSweep(err)
	if err != nil {
		return 0, appErrors.Store(err, "failed to complete elapsed bookings")
	}
	s.metrics.RecordBookingTransition(models.BookingStatusAccepted, models.BookingStatusCompleted, int(completed))
	if completed > 0 {
		s.logger.Info("bookings completed", zap.Int64("count", completed))
	}
	return completed, nil
}

// ListForStudent returns the caller's bookings, latest start first.
func (s *BookingService) ListForStudent(ctx context.Context, session models.SessionContext) ([]models.StudentBooking, error) {
	if err := requireRole(session, models.RoleStudent); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListForStudent(ctx, session.UserID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list bookings")
	}
	for i := range bookings {
		if bookings[i].TutorName == "" {
			bookings[i].TutorName = models.UnknownTutorName
		}
	}
	return bookings, nil
}

// ListForTutor returns the caller's bookings, latest start first.
func (s *BookingService) ListForTutor(ctx context.Context, session models.SessionContext) ([]models.TutorBooking, error) {
	if err := requireRole(session, models.RoleTutor); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListForTutor(ctx, session.UserID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list bookings")
	}
	return bookings, nil
}

// ListForAdmin returns every booking with both names, newest first.
func (s *BookingService) ListForAdmin(ctx context.Context, session models.SessionContext) ([]models.BookingWithNames, error) {
	if err := requireRole(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListWithNames(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list bookings")
	}
	return bookings, nil
}

func (s *BookingService) record(ctx context.Context, userID, action, bookingID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "booking",
		ResourceID: &bookingID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record booking audit log", zap.String("action", action), zap.Error(err))
	}
}

func requireRole(session models.SessionContext, role models.UserRole) error {
	if session.UserID == "" {
		return appErrors.Clone(appErrors.ErrAuth, "sign in required")
	}
	if session.Role != role {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("requires %s role", role))
	}
	return nil
}

func invalidTransition(from, to models.BookingStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move booking from %s to %s", from, to))
}

func overlapConflict() error {
	return appErrors.Clone(appErrors.ErrConflict, "booking overlaps another accepted booking")
}
