package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type profileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type tutorProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.TutorProfile, error)
	Upsert(ctx context.Context, userID string, fields models.UpsertTutorProfileRequest, now time.Time) (*models.TutorProfile, error)
	ListListings(ctx context.Context) ([]models.TutorListing, error)
	FindListing(ctx context.Context, userID string) (*models.TutorListing, error)
}

type ratingSummaryProvider interface {
	Summary(ctx context.Context, tutorID string) (*models.RatingSummary, error)
}

// ProfileServiceParams groups constructor dependencies.
type ProfileServiceParams struct {
	Profiles      profileReader
	TutorProfiles tutorProfileRepository
	Ratings       ratingSummaryProvider
	Cache         *CacheService
	Validator     *validator.Validate
	Logger        *zap.Logger
	CacheTTL      time.Duration
}

// ProfileService serves profiles, tutor profiles and the tutor directory.
type ProfileService struct {
	profiles      profileReader
	tutorProfiles tutorProfileRepository
	ratings       ratingSummaryProvider
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	cacheTTL      time.Duration
	now           func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(params ProfileServiceParams) *ProfileService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		profiles:      params.Profiles,
		tutorProfiles: params.TutorProfiles,
		ratings:       params.Ratings,
		cache:         params.Cache,
		validator:     validate,
		logger:        logger,
		cacheTTL:      params.CacheTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetProfile returns the profile for a user id.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Store(err, "failed to load profile")
	}
	return profile, nil
}

// GetTutorProfile returns the extended profile of a tutor.
func (s *ProfileService) GetTutorProfile(ctx context.Context, userID string) (*models.TutorProfile, error) {
	profile, err := s.tutorProfiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor profile not found")
		}
		return nil, appErrors.Store(err, "failed to load tutor profile")
	}
	return profile, nil
}

// UpsertTutorProfile creates or updates the caller's tutor profile in one
// store write. Only tutors own a tutor profile.
func (s *ProfileService) UpsertTutorProfile(ctx context.Context, session models.SessionContext, req models.UpsertTutorProfileRequest) (*models.TutorProfile, error) {
	if session.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrAuth, "sign in required")
	}
	if session.Role != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only tutors have a tutor profile")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid tutor profile payload")
	}
	if req.Subjects != nil {
		normalized := models.NormalizeSubjects(*req.Subjects)
		req.Subjects = &normalized
	}
	trimOptional(req.Bio, req.Availability, req.Qualification, req.Specialties, req.Background, req.Languages)

	profile, err := s.tutorProfiles.Upsert(ctx, session.UserID, req, s.now())
	if err != nil {
		return nil, appErrors.Store(err, "failed to save tutor profile")
	}

	_ = s.cache.Delete(ctx, cacheKeyTutorDirectory)
	s.logger.Info("tutor profile saved", zap.String("tutor_id", session.UserID))
	return profile, nil
}

// ListTutors returns the tutor directory filtered by a case-insensitive
// substring of subjects or name. Tutors without a name are shown as
// models.UnknownTutorName.
func (s *ProfileService) ListTutors(ctx context.Context, query string) ([]models.TutorListing, bool, error) {
	var listings []models.TutorListing
	hit, err := s.cache.Get(ctx, cacheKeyTutorDirectory, &listings)
	if err != nil {
		hit = false
	}
	if !hit {
		listings, err = s.tutorProfiles.ListListings(ctx)
		if err != nil {
			return nil, false, appErrors.Store(err, "failed to list tutors")
		}
		_ = s.cache.Set(ctx, cacheKeyTutorDirectory, listings, s.cacheTTL)
	}

	filtered := make([]models.TutorListing, 0, len(listings))
	for _, listing := range listings {
		if !listing.Matches(query) {
			continue
		}
		listing.Name = listing.DisplayName()
		filtered = append(filtered, listing)
	}
	return filtered, hit, nil
}

// GetTutorDetail returns a tutor listing with its rating summary.
func (s *ProfileService) GetTutorDetail(ctx context.Context, tutorID string) (*models.TutorDetail, error) {
	listing, err := s.tutorProfiles.FindListing(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Store(err, "failed to load tutor")
	}
	listing.Name = listing.DisplayName()

	detail := &models.TutorDetail{Listing: *listing, Rating: models.RatingSummary{TutorID: tutorID}}
	if s.ratings != nil {
		summary, err := s.ratings.Summary(ctx, tutorID)
		if err != nil {
			return nil, err
		}
		detail.Rating = *summary
	}
	return detail, nil
}

func trimOptional(values ...*string) {
	for _, value := range values {
		if value != nil {
			*value = strings.TrimSpace(*value)
		}
	}
}
