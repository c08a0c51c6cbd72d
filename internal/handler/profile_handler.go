package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/middleware"
	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/internal/service"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

type profileService interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetTutorProfile(ctx context.Context, userID string) (*models.TutorProfile, error)
	UpsertTutorProfile(ctx context.Context, session models.SessionContext, req models.UpsertTutorProfileRequest) (*models.TutorProfile, error)
	ListTutors(ctx context.Context, query string) ([]models.TutorListing, bool, error)
	GetTutorDetail(ctx context.Context, tutorID string) (*models.TutorDetail, error)
}

// ProfileHandler serves profiles and the tutor directory.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(service profileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Me godoc
// @Summary Caller's profile
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	h.respondProfile(c, session.UserID)
}

// Get godoc
// @Summary Profile by user id
// @Tags Profiles
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	h.respondProfile(c, c.Param("id"))
}

func (h *ProfileHandler) respondProfile(c *gin.Context, userID string) {
	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// ListTutors godoc
// @Summary Tutor directory
// @Description Case-insensitive substring filter over subjects and name
// @Tags Tutors
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *ProfileHandler) ListTutors(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	tutors, hit, err := h.service.ListTutors(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.RecordCache(c, service.TutorDirectoryCacheKey, hit)
	meta := middleware.ResponseMeta(c)
	meta["count"] = len(tutors)
	response.JSON(c, http.StatusOK, tutors, meta)
}

// GetTutor godoc
// @Summary Tutor detail with rating summary
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *ProfileHandler) GetTutor(c *gin.Context) {
	detail, err := h.service.GetTutorDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// GetTutorProfile godoc
// @Summary Tutor profile
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id}/profile [get]
func (h *ProfileHandler) GetTutorProfile(c *gin.Context) {
	profile, err := h.service.GetTutorProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// UpsertTutorProfile godoc
// @Summary Create or update the caller's tutor profile
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body models.UpsertTutorProfileRequest true "Tutor profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/profile [put]
func (h *ProfileHandler) UpsertTutorProfile(c *gin.Context) {
	var req models.UpsertTutorProfileRequest
	if !bindJSON(c, &req, "invalid tutor profile payload") {
		return
	}

	profile, err := h.service.UpsertTutorProfile(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}
