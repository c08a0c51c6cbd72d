package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/middleware"
	"github.com/noah-isme/eduhire-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

var (
	studentSession = models.SessionContext{UserID: "student-1", Role: models.RoleStudent, Email: "siti@example.com"}
	tutorSession   = models.SessionContext{UserID: "tutor-1", Role: models.RoleTutor}
	adminSession   = models.SessionContext{UserID: "admin-1", Role: models.RoleAdmin}
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestContext builds a gin context for a request, attaching session when
// it carries a user id.
func newTestContext(method, target string, body interface{}, session models.SessionContext) (*gin.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, reader)
	if reader.Len() > 0 {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if session.UserID != "" {
		c.Set(middleware.ContextSessionKey, session)
	}
	return c, rec
}

func decodeEnvelope(rec *httptest.ResponseRecorder) responseEnvelope {
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return envelope
}

func withParam(c *gin.Context, key, value string) {
	c.Params = append(c.Params, gin.Param{Key: key, Value: value})
}
