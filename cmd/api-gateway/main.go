package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/eduhire-api/api/swagger"
	"github.com/noah-isme/eduhire-api/internal/handler"
	"github.com/noah-isme/eduhire-api/internal/repository"
	"github.com/noah-isme/eduhire-api/internal/server"
	"github.com/noah-isme/eduhire-api/internal/service"
	"github.com/noah-isme/eduhire-api/pkg/cache"
	"github.com/noah-isme/eduhire-api/pkg/config"
	"github.com/noah-isme/eduhire-api/pkg/database"
	"github.com/noah-isme/eduhire-api/pkg/logger"
)

// @title EduHire API
// @version 1.0.0
// @description Tutoring marketplace: tutor directory, bookings and ratings
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Store)
	if err != nil {
		logr.Fatal("failed to connect to store", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and session denylist", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	tutorProfileRepo := repository.NewTutorProfileRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, profileRepo, sessionRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	ratingSvc := service.NewRatingService(service.RatingServiceParams{
		Ratings:   ratingRepo,
		Bookings:  bookingRepo,
		Audit:     userRepo,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		CacheTTL:  cfg.Cache.TTL,
	})
	profileSvc := service.NewProfileService(service.ProfileServiceParams{
		Profiles:      profileRepo,
		TutorProfiles: tutorProfileRepo,
		Ratings:       ratingSvc,
		Cache:         cacheSvc,
		Validator:     validate,
		Logger:        logr,
		CacheTTL:      cfg.Cache.TTL,
	})
	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Bookings:  bookingRepo,
		Profiles:  profileRepo,
		Audit:     userRepo,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	adminSvc := service.NewAdminService(service.AdminServiceParams{
		Profiles: profileRepo,
		Users:    userRepo,
		Sessions: authSvc,
		Bookings: bookingSvc,
		Audit:    userRepo,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logr,
	})

	if cfg.Bookings.CompletionEnabled {
		worker := service.NewBookingCompletionWorker(bookingSvc, service.BookingCompletionConfig{
			Schedule:   cfg.Bookings.CompletionSchedule,
			MaxRetries: cfg.Bookings.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		if err := worker.Start(ctx); err != nil {
			logr.Fatal("failed to start booking completion worker", zap.Error(err))
		}
		defer worker.Stop()
	}

	router := server.NewRouter(server.Dependencies{
		Config:   cfg,
		Logger:   logr,
		Sessions: authSvc,
		Locker:   sessionRepo,
		Audit:    userRepo,
		Metrics:  metrics,
		Handlers: server.Handlers{
			Auth:    handler.NewAuthHandler(authSvc),
			Profile: handler.NewProfileHandler(profileSvc),
			Booking: handler.NewBookingHandler(bookingSvc),
			Rating:  handler.NewRatingHandler(ratingSvc),
			Admin:   handler.NewAdminHandler(adminSvc),
			Metrics: handler.NewMetricsHandler(metrics, db),
		},
	})

	if err := server.Run(ctx, cfg, router, logr); err != nil {
		logr.Error("server stopped with error", zap.Error(err))
	}
}
