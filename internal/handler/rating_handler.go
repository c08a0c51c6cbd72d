package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

type ratingService interface {
	Submit(ctx context.Context, session models.SessionContext, bookingID string, req models.SubmitRatingRequest) (*models.Rating, error)
	Summary(ctx context.Context, tutorID string) (*models.RatingSummary, error)
	ListForTutor(ctx context.Context, tutorID string) ([]models.RatingWithReviewer, error)
}

// RatingHandler exposes ratings of completed bookings.
type RatingHandler struct {
	service ratingService
}

// NewRatingHandler constructs the handler.
func NewRatingHandler(service ratingService) *RatingHandler {
	return &RatingHandler{service: service}
}

// Submit godoc
// @Summary Rate a completed booking
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.SubmitRatingRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/rating [post]
func (h *RatingHandler) Submit(c *gin.Context) {
	var req models.SubmitRatingRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}

	rating, err := h.service.Submit(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// ListForTutor godoc
// @Summary Ratings of a tutor
// @Tags Ratings
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/ratings [get]
func (h *RatingHandler) ListForTutor(c *gin.Context) {
	ratings, err := h.service.ListForTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, map[string]interface{}{"count": len(ratings)})
}

// Summary godoc
// @Summary Average rating of a tutor
// @Description average is null when the tutor has no ratings
// @Tags Ratings
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/rating-summary [get]
func (h *RatingHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}
