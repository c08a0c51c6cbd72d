package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/export"
)

type adminProfileLister interface {
	List(ctx context.Context) ([]models.Profile, error)
}

type userDeleter interface {
	Delete(ctx context.Context, id string) error
}

type userSessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) error
}

type adminBookingLister interface {
	ListForAdmin(ctx context.Context, session models.SessionContext) ([]models.BookingWithNames, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AdminServiceParams groups constructor dependencies.
type AdminServiceParams struct {
	Profiles adminProfileLister
	Users    userDeleter
	Sessions userSessionRevoker
	Bookings adminBookingLister
	Audit    auditRecorder
	Cache    *CacheService
	Metrics  *MetricsService
	CSV      csvRenderer
	PDF      pdfRenderer
	Logger   *zap.Logger
}

// AdminService backs the admin console.
type AdminService struct {
	profiles adminProfileLister
	users    userDeleter
	sessions userSessionRevoker
	bookings adminBookingLister
	audit    auditRecorder
	cache    *CacheService
	metrics  *MetricsService
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(params AdminServiceParams) *AdminService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var csv csvRenderer = export.NewCSVExporter()
	if params.CSV != nil {
		csv = params.CSV
	}
	var pdf pdfRenderer = export.NewPDFExporter()
	if params.PDF != nil {
		pdf = params.PDF
	}
	return &AdminService{
		profiles: params.Profiles,
		users:    params.Users,
		sessions: params.Sessions,
		bookings: params.Bookings,
		audit:    params.Audit,
		cache:    params.Cache,
		metrics:  params.Metrics,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers returns every profile, newest first.
func (s *AdminService) ListUsers(ctx context.Context, session models.SessionContext) ([]models.Profile, error) {
	if err := requireRole(session, models.RoleAdmin); err != nil {
		return nil, err
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list users")
	}
	return profiles, nil
}

// DeleteUser removes an account together with its profile, tutor profile,
// bookings, ratings and refresh tokens, then revokes the access tokens the
// user still holds. Admins cannot delete their own account.
func (s *AdminService) DeleteUser(ctx context.Context, session models.SessionContext, userID string) error {
	if err := requireRole(session, models.RoleAdmin); err != nil {
		return err
	}
	if session.Is(userID) {
		return appErrors.Clone(appErrors.ErrForbidden, "admins cannot delete their own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Store(err, "failed to delete user")
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeUserSessions(ctx, userID); err != nil {
			s.logger.Warn("failed to revoke sessions of deleted user", zap.String("user_id", userID), zap.Error(err))
		}
	}
	_ = s.cache.Delete(ctx, cacheKeyTutorDirectory)
	_ = s.cache.Invalidate(ctx, cachePatternRatingSummary)
	s.record(ctx, session.UserID, models.AuditActionUserDelete, "user", userID)
	s.logger.Info("user deleted", zap.String("user_id", userID), zap.String("admin_id", session.UserID))
	return nil
}

// ListBookings returns every booking with both names, newest first.
func (s *AdminService) ListBookings(ctx context.Context, session models.SessionContext) ([]models.BookingWithNames, error) {
	return s.bookings.ListForAdmin(ctx, session)
}

// ExportBookings renders the admin booking list as CSV or PDF.
func (s *AdminService) ExportBookings(ctx context.Context, session models.SessionContext, format models.ExportFormat) (*models.FileExport, error) {
	bookings, err := s.bookings.ListForAdmin(ctx, session)
	if err != nil {
		return nil, err
	}

	dataset := bookingDataset(bookings)
	var body []byte
	switch format {
	case models.ExportFormatCSV:
		body, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		body, err = s.pdf.Render(dataset, "Bookings")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.record(ctx, session.UserID, models.AuditActionExport, "booking", string(format))
	return &models.FileExport{
		Filename:    fmt.Sprintf("bookings-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// SystemMetrics returns the process instrumentation snapshot.
func (s *AdminService) SystemMetrics(session models.SessionContext) (models.SystemMetrics, error) {
	if err := requireRole(session, models.RoleAdmin); err != nil {
		return models.SystemMetrics{}, err
	}
	return s.metrics.Snapshot(), nil
}

func (s *AdminService) record(ctx context.Context, adminID, action, resource, resourceID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record admin audit log", zap.String("action", action), zap.Error(err))
	}
}

var bookingExportHeaders = []string{"Booking", "Student", "Tutor", "Start", "End", "Status", "Created"}

func bookingDataset(bookings []models.BookingWithNames) export.Dataset {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, map[string]string{
			"Booking": b.ID,
			"Student": nameOrUnknown(b.StudentName),
			"Tutor":   nameOrUnknown(b.TutorName),
			"Start":   b.StartTime.UTC().Format(time.RFC3339),
			"End":     b.EndTime.UTC().Format(time.RFC3339),
			"Status":  string(b.Status),
			"Created": b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: bookingExportHeaders, Rows: rows}
}

func nameOrUnknown(name string) string {
	if name == "" {
		return models.UnknownName
	}
	return name
}
