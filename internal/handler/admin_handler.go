package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

type adminService interface {
	ListUsers(ctx context.Context, session models.SessionContext) ([]models.Profile, error)
	DeleteUser(ctx context.Context, session models.SessionContext, userID string) error
	ListBookings(ctx context.Context, session models.SessionContext) ([]models.BookingWithNames, error)
	ExportBookings(ctx context.Context, session models.SessionContext, format models.ExportFormat) (*models.FileExport, error)
	SystemMetrics(session models.SessionContext) (models.SystemMetrics, error)
}

// AdminHandler backs the admin console.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service adminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"count": len(users)})
}

// DeleteUser godoc
// @Summary Delete a user and everything they own
// @Tags Admin
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBookings godoc
// @Summary List every booking
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/bookings [get]
func (h *AdminHandler) ListBookings(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, map[string]interface{}{"count": len(bookings)})
}

// ExportBookings godoc
// @Summary Export every booking
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/bookings/export [get]
func (h *AdminHandler) ExportBookings(c *gin.Context) {
	format, ok := models.ParseExportFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	file, err := h.service.ExportBookings(c.Request.Context(), sessionFromContext(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// SystemMetrics godoc
// @Summary Process instrumentation snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/system/metrics [get]
func (h *AdminHandler) SystemMetrics(c *gin.Context) {
	snapshot, err := h.service.SystemMetrics(sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot)
}
