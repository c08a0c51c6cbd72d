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
	"github.com/noah-isme/eduhire-api/internal/repository"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type stubBookingRepo struct {
	bookings     map[string]*models.Booking
	createErr    error
	updateErr    error
	overlap      bool
	completed    int64
	completeErr  error
	completedAt  time.Time
	studentRows  []models.StudentBooking
	tutorRows    []models.TutorBooking
	adminRows    []models.BookingWithNames
	listedFor    string
	updateParams []repository.UpdateStatusParams
}

func newStubBookingRepo(bookings ...*models.Booking) *stubBookingRepo {
	repo := &stubBookingRepo{bookings: make(map[string]*models.Booking)}
	for _, b := range bookings {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (s *stubBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if s.createErr != nil {
		return s.createErr
	}
	booking.ID = "booking-new"
	booking.Status = models.BookingStatusPending
	s.bookings[booking.ID] = booking
	return nil
}

func (s *stubBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	booking, ok := s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *booking
	return &copied, nil
}

func (s *stubBookingRepo) UpdatePendingStatus(ctx context.Context, params repository.UpdateStatusParams) (*models.Booking, error) {
	s.updateParams = append(s.updateParams, params)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	booking, ok := s.bookings[params.ID]
	if !ok || booking.TutorID != params.TutorID || booking.Status != models.BookingStatusPending {
		return nil, sql.ErrNoRows
	}
	if params.Status == models.BookingStatusAccepted && s.overlap {
		return nil, sql.ErrNoRows
	}
	booking.Status = params.Status
	booking.UpdatedAt = params.UpdatedAt
	copied := *booking
	return &copied, nil
}

func (s *stubBookingRepo) HasAcceptedOverlap(ctx context.Context, tutorID, excludeID string, start, end time.Time) (bool, error) {
	return s.overlap, nil
}

func (s *stubBookingRepo) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	s.completedAt = now
	return s.completed, s.completeErr
}

func (s *stubBookingRepo) ListForStudent(ctx context.Context, studentID string) ([]models.StudentBooking, error) {
	s.listedFor = studentID
	return s.studentRows, nil
}

func (s *stubBookingRepo) ListForTutor(ctx context.Context, tutorID string) ([]models.TutorBooking, error) {
	s.listedFor = tutorID
	return s.tutorRows, nil
}

func (s *stubBookingRepo) ListWithNames(ctx context.Context) ([]models.BookingWithNames, error) {
	return s.adminRows, nil
}

type stubProfileReader struct {
	profiles map[string]*models.Profile
	err      error
}

func (s *stubProfileReader) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

var (
	studentSession = models.SessionContext{UserID: "student-1", Role: models.RoleStudent}
	tutorSession   = models.SessionContext{UserID: "tutor-1", Role: models.RoleTutor}
	adminSession   = models.SessionContext{UserID: "admin-1", Role: models.RoleAdmin}
)

func newTestBookingService(repo *stubBookingRepo, audit auditRecorder) *BookingService {
	profiles := &stubProfileReader{profiles: map[string]*models.Profile{
		"tutor-1":   {ID: "tutor-1", Name: "Dewi", Role: models.RoleTutor},
		"student-2": {ID: "student-2", Name: "Budi", Role: models.RoleStudent},
	}}
	return NewBookingService(BookingServiceParams{
		Bookings: repo,
		Profiles: profiles,
		Audit:    audit,
		Metrics:  NewMetricsService(),
	})
}

func pendingBooking(id string) *models.Booking {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Booking{ID: id, StudentID: "student-1", TutorID: "tutor-1", StartTime: start, EndTime: start.Add(time.Hour), Status: models.BookingStatusPending}
}

func TestBookingServiceCreate(t *testing.T) {
	repo := newStubBookingRepo()
	audit := &recordingAudit{}
	svc := newTestBookingService(repo, audit)

	start := time.Now().Add(24 * time.Hour)
	booking, err := svc.Create(context.Background(), studentSession, models.CreateBookingRequest{
		TutorID:   "tutor-1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, "student-1", booking.StudentID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionBookingCreate, audit.logs[0].Action)
}

func TestBookingServiceCreateValidation(t *testing.T) {
	svc := newTestBookingService(newStubBookingRepo(), nil)
	start := time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), models.SessionContext{}, models.CreateBookingRequest{TutorID: "tutor-1", StartTime: start, EndTime: start.Add(time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrAuth), "guests cannot book")

	_, err = svc.Create(context.Background(), tutorSession, models.CreateBookingRequest{TutorID: "tutor-1", StartTime: start, EndTime: start.Add(time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(context.Background(), studentSession, models.CreateBookingRequest{TutorID: "tutor-1", StartTime: start, EndTime: start})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "empty interval")

	_, err = svc.Create(context.Background(), studentSession, models.CreateBookingRequest{TutorID: "tutor-1", StartTime: start, EndTime: start.Add(-time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "reversed interval")

	_, err = svc.Create(context.Background(), studentSession, models.CreateBookingRequest{TutorID: "missing", StartTime: start, EndTime: start.Add(time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(context.Background(), studentSession, models.CreateBookingRequest{TutorID: "student-2", StartTime: start, EndTime: start.Add(time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestBookingServiceCreateStoreFailure(t *testing.T) {
	repo := newStubBookingRepo()
	repo.createErr = errors.New("connection refused")
	svc := newTestBookingService(repo, nil)
	start := time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), studentSession, models.CreateBookingRequest{TutorID: "tutor-1", StartTime: start, EndTime: start.Add(time.Hour)})
	assert.True(t, appErrors.Is(err, appErrors.ErrStore))
}

func TestBookingServiceSetStatusAcceptAndReject(t *testing.T) {
	repo := newStubBookingRepo(pendingBooking("b1"), pendingBooking("b2"))
	audit := &recordingAudit{}
	svc := newTestBookingService(repo, audit)

	accepted, err := svc.SetStatus(context.Background(), tutorSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, accepted.Status)

	rejected, err := svc.SetStatus(context.Background(), tutorSession, "b2", models.UpdateBookingStatusRequest{Status: models.BookingStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)
	assert.Len(t, audit.logs, 2)
}

func TestBookingServiceSetStatusGuards(t *testing.T) {
	repo := newStubBookingRepo(pendingBooking("b1"))
	svc := newTestBookingService(repo, nil)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, studentSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden), "students cannot decide")

	other := models.SessionContext{UserID: "tutor-2", Role: models.RoleTutor}
	_, err = svc.SetStatus(ctx, other, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden), "only the booking's tutor")

	_, err = svc.SetStatus(ctx, other, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusCompleted})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden), "ownership is checked before the target status")

	_, err = svc.SetStatus(ctx, tutorSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusCompleted})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "completion is automatic")

	_, err = svc.SetStatus(ctx, tutorSession, "b1", models.UpdateBookingStatusRequest{Status: "CANCELLED"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.SetStatus(ctx, tutorSession, "missing", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	assert.Empty(t, repo.updateParams)
}

func TestBookingServiceSetStatusFromTerminalState(t *testing.T) {
	rejected := pendingBooking("b1")
	rejected.Status = models.BookingStatusRejected
	svc := newTestBookingService(newStubBookingRepo(rejected), nil)

	_, err := svc.SetStatus(context.Background(), tutorSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestBookingServiceSetStatusOverlapConflict(t *testing.T) {
	repo := newStubBookingRepo(pendingBooking("b1"))
	repo.overlap = true
	svc := newTestBookingService(repo, nil)

	_, err := svc.SetStatus(context.Background(), tutorSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	repo.overlap = false
	repo.updateErr = repository.ErrOverlap
	_, err = svc.SetStatus(context.Background(), tutorSession, "b1", models.UpdateBookingStatusRequest{Status: models.BookingStatusAccepted})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestBookingServiceCompleteElapsed(t *testing.T) {
	repo := newStubBookingRepo()
	repo.completed = 3
	svc := newTestBookingService(repo, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	count, err := svc.CompleteElapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.True(t, repo.completedAt.Equal(now))

	repo.completeErr = errors.New("deadlock")
	_, err = svc.CompleteElapsed(context.Background(), now)
	assert.True(t, appErrors.Is(err, appErrors.ErrStore))
}

func TestBookingServiceListings(t *testing.T) {
	repo := newStubBookingRepo()
	repo.studentRows = []models.StudentBooking{{Booking: *pendingBooking("b1")}, {Booking: *pendingBooking("b2"), TutorName: "Dewi"}}
	repo.adminRows = []models.BookingWithNames{{Booking: *pendingBooking("b1"), StudentName: "Ana", TutorName: "Dewi"}}
	svc := newTestBookingService(repo, nil)
	ctx := context.Background()

	studentRows, err := svc.ListForStudent(ctx, studentSession)
	require.NoError(t, err)
	assert.Equal(t, "student-1", repo.listedFor)
	assert.Equal(t, models.UnknownTutorName, studentRows[0].TutorName)
	assert.Equal(t, "Dewi", studentRows[1].TutorName)

	_, err = svc.ListForTutor(ctx, tutorSession)
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", repo.listedFor)

	_, err = svc.ListForTutor(ctx, studentSession)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	adminRows, err := svc.ListForAdmin(ctx, adminSession)
	require.NoError(t, err)
	assert.Len(t, adminRows, 1)

	_, err = svc.ListForAdmin(ctx, tutorSession)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
