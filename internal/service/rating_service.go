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
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type ratingRepository interface {
	CreateForCompletedBooking(ctx context.Context, rating *models.Rating, studentID string) error
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	TotalsForTutor(ctx context.Context, tutorID string) (models.RatingTotals, error)
	ListForTutor(ctx context.Context, tutorID string) ([]models.RatingWithReviewer, error)
}

type bookingFinder interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RatingServiceParams groups constructor dependencies.
type RatingServiceParams struct {
	Ratings   ratingRepository
	Bookings  bookingFinder
	Audit     auditRecorder
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// RatingService records and aggregates ratings of completed bookings.
type RatingService struct {
	ratings   ratingRepository
	bookings  bookingFinder
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewRatingService constructs a RatingService.
func NewRatingService(params RatingServiceParams) *RatingService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		ratings:   params.Ratings,
		bookings:  params.Bookings,
		audit:     params.Audit,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  params.CacheTTL,
	}
}

// Submit rates a completed booking on behalf of its student. The store
// accepts at most one rating per booking and only while the booking is
// COMPLETED; losing either race yields a Conflict.
func (s *RatingService) Submit(ctx context.Context, session models.SessionContext, bookingID string, req models.SubmitRatingRequest) (*models.Rating, error) {
	if session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "sign in required")
	}
	if session.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can rate bookings")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "rating must be between 1 and 5")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Store(err, "failed to load booking")
	}
	if booking.StudentID != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking's student can rate it")
	}

	rating := &models.Rating{BookingID: booking.ID, Score: req.Rating, Comment: req.Comment}
	if err := s.ratings.CreateForCompletedBooking(ctx, rating, session.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.explainRejectedRating(ctx, booking)
		}
		return nil, appErrors.Store(err, "failed to save rating")
	}

	_ = s.cache.Delete(ctx, cacheKeyRatingSummary+booking.TutorID)
	s.metrics.RecordRating()
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &session.UserID,
			Action:     models.AuditActionRatingSubmit,
			Resource:   "booking",
			ResourceID: &booking.ID,
			NewValues:  []byte(fmt.Sprintf(`{"rating":%d}`, rating.Score)),
		}); err != nil {
			s.logger.Warn("failed to record rating audit log", zap.Error(err))
		}
	}
	return rating, nil
}

// explainRejectedRating works out why the guarded insert wrote nothing.
func (s *RatingService) explainRejectedRating(ctx context.Context, booking *models.Booking) error {
	rated, err := s.ratings.ExistsForBooking(ctx, booking.ID)
	if err != nil {
		return appErrors.Store(err, "failed to check rating")
	}
	if rated {
		return appErrors.Clone(appErrors.ErrConflict, "booking already rated")
	}
	return appErrors.Clone(appErrors.ErrConflict, "booking is not completed")
}

// Summary returns the average rating of a tutor. The average is absent when
// the tutor has not been rated.
func (s *RatingService) Summary(ctx context.Context, tutorID string) (*models.RatingSummary, error) {
	var cached models.RatingSummary
	if hit, _ := s.cache.Get(ctx, cacheKeyRatingSummary+tutorID, &cached); hit {
		return &cached, nil
	}

	totals, err := s.ratings.TotalsForTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load rating summary")
	}
	summary := &models.RatingSummary{TutorID: tutorID, Average: totals.Average(), Count: totals.Count}
	_ = s.cache.Set(ctx, cacheKeyRatingSummary+tutorID, summary, s.cacheTTL)
	return summary, nil
}

// ListForTutor returns the tutor's ratings with reviewer names, newest first.
func (s *RatingService) ListForTutor(ctx context.Context, tutorID string) ([]models.RatingWithReviewer, error) {
	ratings, err := s.ratings.ListForTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list ratings")
	}
	for i := range ratings {
		if ratings[i].ReviewerName == "" {
			ratings[i].ReviewerName = models.UnknownReviewerName
		}
	}
	return ratings, nil
}
