package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type stubValidator struct {
	sessions map[string]models.SessionContext
}

func (s stubValidator) ValidateSession(_ context.Context, token string) (models.SessionContext, error) {
	session, ok := s.sessions[token]
	if !ok {
		return models.SessionContext{}, appErrors.Clone(appErrors.ErrAuth, "invalid token")
	}
	return session, nil
}

var testValidator = stubValidator{sessions: map[string]models.SessionContext{
	"student-token": {UserID: "student-1", Role: models.RoleStudent},
	"tutor-token":   {UserID: "tutor-1", Role: models.RoleTutor},
}}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	r := gin.New()
	r.GET("/session", JWT(testValidator), func(c *gin.Context) {
		session, ok := SessionFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, session.UserID)
	})

	rec := perform(r, http.MethodGet, "/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH_ERROR")

	rec = perform(r, http.MethodGet, "/session", "unknown")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Token student-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(r, http.MethodGet, "/session", "student-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student-1", rec.Body.String())
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := gin.New()
	r.GET("/tutors", OptionalJWT(testValidator), func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, string(session.Role))
	})

	assert.Equal(t, "guest", perform(r, http.MethodGet, "/tutors", "").Body.String())
	assert.Equal(t, "guest", perform(r, http.MethodGet, "/tutors", "bogus").Body.String())
	assert.Equal(t, "TUTOR", perform(r, http.MethodGet, "/tutors", "tutor-token").Body.String())
}

func TestRBAC(t *testing.T) {
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/guest", RequireRoles(models.RoleTutor), ok)
	r.GET("/tutor", JWT(testValidator), RequireRoles(models.RoleTutor), ok)
	r.GET("/profiles/:id", JWT(testValidator), RBAC(string(models.RoleAdmin), "SELF"), ok)

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/guest", "").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/tutor", "tutor-token").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/tutor", "student-token").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/profiles/student-1", "student-token").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/profiles/tutor-1", "student-token").Code)
}

type memoryLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
	seq      int
	err      error
}

func (m *memoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	if m.held == nil {
		m.held = map[string]string{}
	}
	if _, taken := m.held[key]; taken {
		return "", false, nil
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.held[key] = token
	return token, true, nil
}

func (m *memoryLocker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	m.released = append(m.released, key+"="+token)
	return nil
}

func TestInflightRejectsDuplicateSubmission(t *testing.T) {
	locker := &memoryLocker{}
	r := gin.New()
	r.PATCH("/bookings/:id/status", JWT(testValidator), Inflight(locker, time.Second, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Simulate the first request still holding the lock.
	locker.held = map[string]string{"tutor-1:PATCH:/bookings/:id/status:b-1": "token-0"}
	rec := perform(r, http.MethodPatch, "/bookings/b-1/status", "tutor-token")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "request already in progress")

	rec = perform(r, http.MethodPatch, "/bookings/b-2/status", "tutor-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tutor-1:PATCH:/bookings/:id/status:b-2=token-1"}, locker.released)

	rec = perform(r, http.MethodPatch, "/bookings/b-2/status", "tutor-token")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInflightFailsOpen(t *testing.T) {
	locker := &memoryLocker{err: errors.New("redis down")}
	r := gin.New()
	r.POST("/bookings", JWT(testValidator), Inflight(locker, time.Second, nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/bookings", "student-token").Code)
}

type recordingAuditWriter struct {
	logs []*models.AuditLog
}

func (r *recordingAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	writer := &recordingAuditWriter{}
	r := gin.New()
	r.PUT("/tutors/me/profile", JWT(testValidator), Audit(writer, models.AuditActionTutorProfile, "tutor_profile"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodPut, "/tutors/me/profile?fail=1", "tutor-token")
	require.Empty(t, writer.logs)

	perform(r, http.MethodPut, "/tutors/me/profile", "tutor-token")
	require.Len(t, writer.logs, 1)
	assert.Equal(t, models.AuditActionTutorProfile, writer.logs[0].Action)
	require.NotNil(t, writer.logs[0].UserID)
	assert.Equal(t, "tutor-1", *writer.logs[0].UserID)
}

func TestResponseMetaRecordsCacheEntry(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/tutors", func(c *gin.Context) {
		RecordCache(c, "tutors:directory", true)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/tutors", "")
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "tutors:directory", meta["cache_key"])
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/tutors", func(c *gin.Context) {
		RecordCache(c, "tutors:directory", false)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/tutors", "")
	assert.Equal(t, false, meta["cache_hit"])
}

type requestObservation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	seen []requestObservation
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.seen = append(r.seen, requestObservation{method: method, route: route, status: status})
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PATCH("/bookings/:id/status", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	perform(r, http.MethodPatch, "/bookings/b-1/status", "")
	perform(r, http.MethodPatch, "/bookings/b-2/status", "")
	perform(r, http.MethodGet, "/health", "")
	perform(r, http.MethodGet, "/bookings/b-1/does-not-exist", "")

	assert.Equal(t, []requestObservation{
		{method: http.MethodPatch, route: "/bookings/:id/status", status: http.StatusNoContent},
		{method: http.MethodPatch, route: "/bookings/:id/status", status: http.StatusNoContent},
		{method: http.MethodGet, route: "unmatched", status: http.StatusNotFound},
	}, observer.seen)
}
