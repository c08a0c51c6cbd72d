package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/eduhire-api/internal/handler"
	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/internal/service"
	"github.com/noah-isme/eduhire-api/pkg/config"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

const testAPIKey = "anon-key"

type stubSessions struct{}

func (stubSessions) ValidateSession(_ context.Context, token string) (models.SessionContext, error) {
	switch token {
	case "student":
		return models.SessionContext{UserID: "student-1", Role: models.RoleStudent}, nil
	case "admin":
		return models.SessionContext{UserID: "admin-1", Role: models.RoleAdmin}, nil
	}
	return models.SessionContext{}, appErrors.Clone(appErrors.ErrAuth, "invalid token")
}

type stubProfiles struct{}

func (stubProfiles) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id}, nil
}

func (stubProfiles) GetTutorProfile(_ context.Context, id string) (*models.TutorProfile, error) {
	return &models.TutorProfile{UserID: id}, nil
}

func (stubProfiles) UpsertTutorProfile(context.Context, models.SessionContext, models.UpsertTutorProfileRequest) (*models.TutorProfile, error) {
	return &models.TutorProfile{}, nil
}

func (stubProfiles) ListTutors(context.Context, string) ([]models.TutorListing, bool, error) {
	return []models.TutorListing{}, false, nil
}

func (stubProfiles) GetTutorDetail(_ context.Context, id string) (*models.TutorDetail, error) {
	return &models.TutorDetail{}, nil
}

type stubAdmin struct{}

func (stubAdmin) ListUsers(context.Context, models.SessionContext) ([]models.Profile, error) {
	return []models.Profile{}, nil
}

func (stubAdmin) DeleteUser(context.Context, models.SessionContext, string) error { return nil }

func (stubAdmin) ListBookings(context.Context, models.SessionContext) ([]models.BookingWithNames, error) {
	return []models.BookingWithNames{}, nil
}

func (stubAdmin) ExportBookings(context.Context, models.SessionContext, models.ExportFormat) (*models.FileExport, error) {
	return &models.FileExport{Filename: "b.csv", ContentType: "text/csv"}, nil
}

func (stubAdmin) SystemMetrics(models.SessionContext) (models.SystemMetrics, error) {
	return models.SystemMetrics{}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:       config.EnvProduction,
		APIPrefix: "/api/v1",
		Store:     config.StoreConfig{APIKey: testAPIKey},
		Guard:     config.GuardConfig{TTL: time.Second},
	}
	return NewRouter(Dependencies{
		Config:   cfg,
		Sessions: stubSessions{},
		Metrics:  service.NewMetricsService(),
		Handlers: Handlers{
			Auth:    handler.NewAuthHandler(nil),
			Profile: handler.NewProfileHandler(stubProfiles{}),
			Booking: handler.NewBookingHandler(nil),
			Rating:  handler.NewRatingHandler(nil),
			Admin:   handler.NewAdminHandler(stubAdmin{}),
			Metrics: handler.NewMetricsHandler(service.NewMetricsService(), nil),
		},
	})
}

func serve(r *gin.Engine, method, path, apiKey, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthNeedsNoKey(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "", "").Code)
}

func TestRouterRequiresAPIKey(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/tutors", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/tutors", testAPIKey, "").Code)
}

func TestRouterPublicTutorRoutes(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/tutors/tutor-1", testAPIKey, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/tutors/tutor-1/profile", testAPIKey, "").Code)
}

func TestRouterRoleGuards(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/bookings", testAPIKey, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/profiles/me", testAPIKey, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/profiles/me", testAPIKey, "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPut, "/api/v1/tutors/me/profile", testAPIKey, "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/bookings/tutor", testAPIKey, "student").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/admin/users", testAPIKey, "student").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/admin/users", testAPIKey, "admin").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/api/v1/admin/users/u-9", testAPIKey, "admin").Code)
}
