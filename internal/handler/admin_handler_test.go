package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
)

type fakeAdminSrv struct {
	deleted []string
	format  models.ExportFormat
}

func (f *fakeAdminSrv) ListUsers(context.Context, models.SessionContext) ([]models.Profile, error) {
	return []models.Profile{{ID: "u-1"}, {ID: "u-2"}}, nil
}

func (f *fakeAdminSrv) DeleteUser(_ context.Context, session models.SessionContext, userID string) error {
	if session.Is(userID) {
		return appErrors.Clone(appErrors.ErrForbidden, "admins cannot delete their own account")
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

func (f *fakeAdminSrv) ListBookings(context.Context, models.SessionContext) ([]models.BookingWithNames, error) {
	return nil, nil
}

func (f *fakeAdminSrv) ExportBookings(_ context.Context, _ models.SessionContext, format models.ExportFormat) (*models.FileExport, error) {
	f.format = format
	return &models.FileExport{Filename: "bookings.csv", ContentType: format.ContentType(), Body: []byte("Booking\n")}, nil
}

func (f *fakeAdminSrv) SystemMetrics(models.SessionContext) (models.SystemMetrics, error) {
	return models.SystemMetrics{RequestsTotal: 3}, nil
}

func TestAdminHandlerListUsers(t *testing.T) {
	handler := NewAdminHandler(&fakeAdminSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/users", nil, adminSession)
	handler.ListUsers(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeEnvelope(rec).Meta["count"])
}

func TestAdminHandlerDeleteUser(t *testing.T) {
	srv := &fakeAdminSrv{}
	handler := NewAdminHandler(srv)

	c, rec := newTestContext(http.MethodDelete, "/admin/users/u-1", nil, adminSession)
	withParam(c, "id", "u-1")
	handler.DeleteUser(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, []string{"u-1"}, srv.deleted)

	c, rec = newTestContext(http.MethodDelete, "/admin/users/admin-1", nil, adminSession)
	withParam(c, "id", "admin-1")
	handler.DeleteUser(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminHandlerExportBookings(t *testing.T) {
	srv := &fakeAdminSrv{}
	handler := NewAdminHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/admin/bookings/export", nil, adminSession)
	handler.ExportBookings(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, srv.format)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings.csv")
	assert.Equal(t, "Booking\n", rec.Body.String())
}

func TestAdminHandlerExportRejectsUnknownFormat(t *testing.T) {
	handler := NewAdminHandler(&fakeAdminSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/bookings/export?format=xlsx", nil, adminSession)
	handler.ExportBookings(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandlerSystemMetrics(t *testing.T) {
	handler := NewAdminHandler(&fakeAdminSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/system/metrics", nil, adminSession)
	handler.SystemMetrics(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
