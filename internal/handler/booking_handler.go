package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, session models.SessionContext, req models.CreateBookingRequest) (*models.Booking, error)
	SetStatus(ctx context.Context, session models.SessionContext, bookingID string, req models.UpdateBookingStatusRequest) (*models.Booking, error)
	ListForStudent(ctx context.Context, session models.SessionContext) ([]models.StudentBooking, error)
	ListForTutor(ctx context.Context, session models.SessionContext) ([]models.TutorBooking, error)
}

// BookingHandler exposes the booking lifecycle.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(service bookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// Create godoc
// @Summary Request a session with a tutor
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body models.CreateBookingRequest true "Booking"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}

	booking, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// ListForStudent godoc
// @Summary Caller's bookings as a student
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/student [get]
func (h *BookingHandler) ListForStudent(c *gin.Context) {
	bookings, err := h.service.ListForStudent(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, map[string]interface{}{"count": len(bookings)})
}

// ListForTutor godoc
// @Summary Caller's bookings as a tutor
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/tutor [get]
func (h *BookingHandler) ListForTutor(c *gin.Context) {
	bookings, err := h.service.ListForTutor(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, map[string]interface{}{"count": len(bookings)})
}

// SetStatus godoc
// @Summary Accept or reject a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.UpdateBookingStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) SetStatus(c *gin.Context) {
	var req models.UpdateBookingStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}

	booking, err := h.service.SetStatus(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking)
}
