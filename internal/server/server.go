// Package server assembles the gin router and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/eduhire-api/internal/handler"
	"github.com/noah-isme/eduhire-api/internal/middleware"
	"github.com/noah-isme/eduhire-api/internal/models"
	"github.com/noah-isme/eduhire-api/internal/service"
	"github.com/noah-isme/eduhire-api/pkg/config"
	"github.com/noah-isme/eduhire-api/pkg/logger"
	"github.com/noah-isme/eduhire-api/pkg/middleware/apikey"
	corsmiddleware "github.com/noah-isme/eduhire-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/eduhire-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Booking *handler.BookingHandler
	Rating  *handler.RatingHandler
	Admin   *handler.AdminHandler
	Metrics *handler.MetricsHandler
}

// Dependencies carries everything NewRouter needs.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions middleware.SessionValidator
	Locker   middleware.InflightLocker
	Audit    middleware.AuditWriter
	Metrics  *service.MetricsService
	Handlers Handlers
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := deps.Handlers

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(deps.Sessions)
	guard := middleware.Inflight(deps.Locker, cfg.Guard.TTL, log)

	api := r.Group(cfg.APIPrefix)
	api.Use(apikey.Middleware(cfg.Store.APIKey))

	authGroup := api.Group("/auth")
	authGroup.POST("/sign-up", h.Auth.SignUp)
	authGroup.POST("/sign-in", h.Auth.SignIn)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/sign-out", auth, h.Auth.SignOut)
	authGroup.GET("/session", auth, h.Auth.Session)

	profiles := api.Group("/profiles", auth)
	profiles.GET("/me", h.Profile.Me)
	profiles.GET("/:id", h.Profile.Get)

	tutors := api.Group("/tutors")
	tutors.GET("", h.Profile.ListTutors)
	tutors.GET("/:id", h.Profile.GetTutor)
	tutors.GET("/:id/profile", h.Profile.GetTutorProfile)
	tutors.GET("/:id/ratings", h.Rating.ListForTutor)
	tutors.GET("/:id/rating-summary", h.Rating.Summary)
	tutors.PUT("/me/profile",
		auth,
		middleware.RequireRoles(models.RoleTutor),
		guard,
		middleware.Audit(deps.Audit, models.AuditActionTutorProfile, "tutor_profile"),
		h.Profile.UpsertTutorProfile,
	)

	bookings := api.Group("/bookings", auth)
	bookings.POST("", middleware.RequireRoles(models.RoleStudent), guard, h.Booking.Create)
	bookings.GET("/student", middleware.RequireRoles(models.RoleStudent), h.Booking.ListForStudent)
	bookings.GET("/tutor", middleware.RequireRoles(models.RoleTutor), h.Booking.ListForTutor)
	bookings.PATCH("/:id/status", middleware.RequireRoles(models.RoleTutor), guard, h.Booking.SetStatus)
	bookings.POST("/:id/rating", middleware.RequireRoles(models.RoleStudent), guard, h.Rating.Submit)

	admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.DELETE("/users/:id", guard, h.Admin.DeleteUser)
	admin.GET("/bookings", h.Admin.ListBookings)
	admin.GET("/bookings/export", h.Admin.ExportBookings)
	admin.GET("/system/metrics", h.Admin.SystemMetrics)

	return r
}

// Run serves h on the configured port until ctx is cancelled, then
// drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}
