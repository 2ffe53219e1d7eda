package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/la-portal-api/api/swagger"
	"github.com/noah-isme/la-portal-api/internal/authz"
	"github.com/noah-isme/la-portal-api/internal/handler"
	"github.com/noah-isme/la-portal-api/internal/repository"
	"github.com/noah-isme/la-portal-api/internal/router"
	"github.com/noah-isme/la-portal-api/internal/service"
	"github.com/noah-isme/la-portal-api/pkg/cache"
	"github.com/noah-isme/la-portal-api/pkg/config"
	"github.com/noah-isme/la-portal-api/pkg/database"
	"github.com/noah-isme/la-portal-api/pkg/logger"
	"github.com/noah-isme/la-portal-api/pkg/password"
	"github.com/noah-isme/la-portal-api/pkg/ratelimit"
)

// @title LA Portal API
// @version 1.0.0
// @description Staff directory, office hours, schedules and feedback for the learning assistant program.
// @BasePath /api
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	staffRepo := repository.NewStaffRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheRepo service.CacheRepository
	var cachePinger handler.Pinger
	if redisClient != nil {
		redisCache := repository.NewCacheRepository(redisClient, "laportal")
		cacheRepo = redisCache
		cachePinger = handler.PingFunc(redisCache.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	gate, err := authz.NewGate(staffRepo, logr)
	if err != nil {
		return fmt.Errorf("init authorization gate: %w", err)
	}
	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	policy := password.Policy{MinLength: cfg.Auth.PasswordMinLength}
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer})
	if err != nil {
		return fmt.Errorf("init tokens: %w", err)
	}

	authSvc, err := service.NewAuthService(staffRepo, studentRepo, hasher, tokens, gate, metrics, validate, logr, service.AuthConfig{
		PasswordPolicy:     policy,
		StudentEmailDomain: cfg.Auth.StudentEmailDomain,
	})
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}
	staffSvc := service.NewStaffService(staffRepo, hasher, policy, gate, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, staffRepo, gate, cacheSvc, metrics, validate, logr, location)
	officeHoursSvc := service.NewOfficeHoursService(scheduleRepo, gate, cacheSvc)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, gate, validate, logr)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.NewRedisStore(redisClient), "laportal:ratelimit")
	}
	if !limiter.Enabled() {
		logr.Info("rate limiting disabled")
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		StaticDir:      cfg.StaticDir,
		EnableDocs:     cfg.Env != config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Verifier:       tokens,
		Limiter:        limiter,
		RateLimits: router.RateLimits{
			Login:    ratelimit.Rule{Name: "login", Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow},
			Signup:   ratelimit.Rule{Name: "signup", Limit: cfg.RateLimit.SignupLimit, Window: cfg.RateLimit.SignupWindow},
			Password: ratelimit.Rule{Name: "password", Limit: cfg.RateLimit.PasswordLimit, Window: cfg.RateLimit.PasswordWindow},
		},
		Metrics: metrics,
		Logger:  logr,
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Staff:       handler.NewStaffHandler(staffSvc),
		Schedule:    handler.NewScheduleHandler(scheduleSvc),
		OfficeHours: handler.NewOfficeHoursHandler(officeHoursSvc),
		Feedback:    handler.NewFeedbackHandler(feedbackSvc),
		Metrics:     handler.NewMetricsHandler(metrics, db, cachePinger, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
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

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
