package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type stubTutorProfileRepo struct {
	profiles  map[string]*models.TutorProfile
	listings  []models.TutorListing
	listCalls int
	upserted  []models.UpsertTutorProfileRequest
	upsertErr error
}

func (s *stubTutorProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.TutorProfile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func (s *stubTutorProfileRepo) Upsert(ctx context.Context, userID string, fields models.UpsertTutorProfileRequest, now time.Time) (*models.TutorProfile, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upserted = append(s.upserted, fields)
	if s.profiles == nil {
		s.profiles = make(map[string]*models.TutorProfile)
	}
	profile, ok := s.profiles[userID]
	if !ok {
		profile = &models.TutorProfile{UserID: userID, CreatedAt: now}
		s.profiles[userID] = profile
	}
	mergeString(&profile.Bio, fields.Bio)
	mergeString(&profile.Subjects, fields.Subjects)
	mergeString(&profile.Availability, fields.Availability)
	mergeString(&profile.Qualification, fields.Qualification)
	mergeString(&profile.Specialties, fields.Specialties)
	mergeString(&profile.ProfileImageURL, fields.ProfileImageURL)
	mergeString(&profile.Background, fields.Background)
	mergeString(&profile.Languages, fields.Languages)
	if fields.HourlyRate != nil {
		profile.HourlyRate = fields.HourlyRate
	}
	if fields.ExperienceYears != nil {
		profile.ExperienceYears = fields.ExperienceYears
	}
	profile.UpdatedAt = now
	stored := *profile
	return &stored, nil
}

// mergeString mirrors the COALESCE(EXCLUDED.col, col) update of the store.
func mergeString(dst **string, value *string) {
	if value != nil {
		*dst = value
	}
}

func (s *stubTutorProfileRepo) ListListings(ctx context.Context) ([]models.TutorListing, error) {
	s.listCalls++
	return s.listings, nil
}

func (s *stubTutorProfileRepo) FindListing(ctx context.Context, userID string) (*models.TutorListing, error) {
	for _, listing := range s.listings {
		if listing.UserID == userID {
			found := listing
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func listing(id, name, subjects string) models.TutorListing {
	return models.TutorListing{TutorProfile: models.TutorProfile{UserID: id, Subjects: &subjects}, Name: name}
}

func newTestProfileService(tutors *stubTutorProfileRepo, ratings ratingSummaryProvider, cacheRepo CacheRepository) *ProfileService {
	return NewProfileService(ProfileServiceParams{
		Profiles: &stubProfileReader{profiles: map[string]*models.Profile{
			"student-1": {ID: "student-1", Name: "Ana", Role: models.RoleStudent},
		}},
		TutorProfiles: tutors,
		Ratings:       ratings,
		Cache:         NewCacheService(cacheRepo, nil, time.Minute, nil, true),
	})
}

func TestProfileServiceGetProfile(t *testing.T) {
	svc := newTestProfileService(&stubTutorProfileRepo{}, nil, nil)

	profile, err := svc.GetProfile(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)

	_, err = svc.GetProfile(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestProfileServiceGetTutorProfileMissing(t *testing.T) {
	svc := newTestProfileService(&stubTutorProfileRepo{}, nil, nil)

	_, err := svc.GetTutorProfile(context.Background(), "tutor-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestProfileServiceUpsertTutorProfile(t *testing.T) {
	tutors := &stubTutorProfileRepo{}
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.values[cacheKeyTutorDirectory] = []byte(`[]`)
	svc := newTestProfileService(tutors, nil, cacheRepo)

	subjects := " Math ,Physics,, "
	rate := 40.0
	profile, err := svc.UpsertTutorProfile(context.Background(), tutorSession, models.UpsertTutorProfileRequest{Subjects: &subjects, HourlyRate: &rate})
	require.NoError(t, err)
	require.NotNil(t, profile.Subjects)
	assert.Equal(t, "Math, Physics", *profile.Subjects)
	assert.Equal(t, "tutor-1", profile.UserID)
	assert.NotContains(t, cacheRepo.values, cacheKeyTutorDirectory)
}

func TestProfileServiceUpsertThenGetTutorProfile(t *testing.T) {
	tutors := &stubTutorProfileRepo{}
	svc := newTestProfileService(tutors, nil, newMemoryCacheRepo())
	ctx := context.Background()

	bio := "Patient math tutor"
	subjects := "Math,Physics"
	rate := 30.0
	_, err := svc.UpsertTutorProfile(ctx, tutorSession, models.UpsertTutorProfileRequest{Bio: &bio, Subjects: &subjects, HourlyRate: &rate})
	require.NoError(t, err)

	first, err := svc.GetTutorProfile(ctx, tutorSession.UserID)
	require.NoError(t, err)
	require.NotNil(t, first.Bio)
	assert.Equal(t, "Patient math tutor", *first.Bio)
	require.NotNil(t, first.Subjects)
	assert.Equal(t, "Math, Physics", *first.Subjects)
	require.NotNil(t, first.HourlyRate)
	assert.Equal(t, 30.0, *first.HourlyRate)
	assert.Nil(t, first.Availability)

	availability := " weekends "
	newRate := 35.0
	_, err = svc.UpsertTutorProfile(ctx, tutorSession, models.UpsertTutorProfileRequest{Availability: &availability, HourlyRate: &newRate})
	require.NoError(t, err)

	second, err := svc.GetTutorProfile(ctx, tutorSession.UserID)
	require.NoError(t, err)
	require.NotNil(t, second.Bio)
	assert.Equal(t, "Patient math tutor", *second.Bio)
	require.NotNil(t, second.Subjects)
	assert.Equal(t, "Math, Physics", *second.Subjects)
	require.NotNil(t, second.HourlyRate)
	assert.Equal(t, 35.0, *second.HourlyRate)
	require.NotNil(t, second.Availability)
	assert.Equal(t, "weekends", *second.Availability)
	assert.Nil(t, second.Qualification)
	assert.Nil(t, second.ExperienceYears)
	assert.Nil(t, second.Languages)
}

func TestProfileServiceUpsertTutorProfileGuards(t *testing.T) {
	tutors := &stubTutorProfileRepo{}
	svc := newTestProfileService(tutors, nil, nil)

	_, err := svc.UpsertTutorProfile(context.Background(), studentSession, models.UpsertTutorProfileRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	negative := -5.0
	_, err = svc.UpsertTutorProfile(context.Background(), tutorSession, models.UpsertTutorProfileRequest{HourlyRate: &negative})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	tutors.upsertErr = errors.New("connection reset")
	_, err = svc.UpsertTutorProfile(context.Background(), tutorSession, models.UpsertTutorProfileRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrStore))
	assert.Empty(t, tutors.upserted)
}

func TestProfileServiceListTutorsFilters(t *testing.T) {
	tutors := &stubTutorProfileRepo{listings: []models.TutorListing{
		listing("t1", "Dewi", "Mathematics, Physics"),
		listing("t2", "Eko", "Biology"),
		listing("t3", "", "Math tutoring"),
	}}
	svc := newTestProfileService(tutors, nil, newMemoryCacheRepo())
	ctx := context.Background()

	all, hit, err := svc.ListTutors(ctx, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, all, 3)
	assert.Equal(t, models.UnknownTutorName, all[2].Name)

	math, hit, err := svc.ListTutors(ctx, "MATH")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, math, 2)
	assert.Equal(t, "t1", math[0].UserID)
	assert.Equal(t, "t3", math[1].UserID)

	byName, _, err := svc.ListTutors(ctx, "eko")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "t2", byName[0].UserID)

	unnamed, _, err := svc.ListTutors(ctx, "unknown")
	require.NoError(t, err)
	require.Len(t, unnamed, 1)
	assert.Equal(t, "t3", unnamed[0].UserID)

	none, _, err := svc.ListTutors(ctx, "chemistry")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 1, tutors.listCalls)
}

type stubSummaryProvider struct {
	summary *models.RatingSummary
	err     error
}

func (s *stubSummaryProvider) Summary(ctx context.Context, tutorID string) (*models.RatingSummary, error) {
	return s.summary, s.err
}

func TestProfileServiceGetTutorDetail(t *testing.T) {
	avg := 4.5
	tutors := &stubTutorProfileRepo{listings: []models.TutorListing{listing("t1", "", "Math")}}
	svc := newTestProfileService(tutors, &stubSummaryProvider{summary: &models.RatingSummary{TutorID: "t1", Average: &avg, Count: 2}}, nil)

	detail, err := svc.GetTutorDetail(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownTutorName, detail.Listing.Name)
	assert.Equal(t, int64(2), detail.Rating.Count)

	_, err = svc.GetTutorDetail(context.Background(), "t9")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
