// Package router assembles the gin engine and its route table.
package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/handler"
	"github.com/noah-isme/la-portal-api/internal/middleware"
	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/internal/service"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	corsmiddleware "github.com/noah-isme/la-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/la-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/la-portal-api/pkg/ratelimit"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth        *handler.AuthHandler
	Staff       *handler.StaffHandler
	Schedule    *handler.ScheduleHandler
	OfficeHours *handler.OfficeHoursHandler
	Feedback    *handler.FeedbackHandler
	Metrics     *handler.MetricsHandler
}

// RateLimits holds the per-IP rules for unauthenticated credential endpoints.
type RateLimits struct {
	Login    ratelimit.Rule
	Signup   ratelimit.Rule
	Password ratelimit.Rule
}

// Options configures the engine.
type Options struct {
	APIPrefix      string
	StaticDir      string
	EnableDocs     bool
	AllowedOrigins []string
	Verifier       middleware.TokenVerifier
	Limiter        *ratelimit.Limiter
	RateLimits     RateLimits
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// New builds the engine with the full route table.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.Observe(opts.Logger, opts.Metrics))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))

	r.GET("/healthz", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limit := func(rule ratelimit.Rule) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, rule, opts.Metrics, opts.Logger)
	}
	authRequired := middleware.JWT(opts.Verifier)
	seniorLead := middleware.RequireRoles(models.RoleSeniorLead)

	api := r.Group(prefix)
	api.Use(middleware.OptionalJWT(opts.Verifier))

	auth := api.Group("/auth")
	auth.POST("/login", limit(opts.RateLimits.Login), h.Auth.Login)
	auth.POST("/student/signup", limit(opts.RateLimits.Signup), h.Auth.Signup)
	auth.POST("/change-password", limit(opts.RateLimits.Password), authRequired, h.Auth.ChangePassword)
	auth.GET("/me", authRequired, h.Auth.Me)
	auth.POST("/logout", authRequired, h.Auth.Logout)
	auth.GET("/students/pending", authRequired, seniorLead, h.Auth.ListPending)
	auth.POST("/students/:id/approve", authRequired, seniorLead, h.Auth.Approve)
	auth.POST("/students/:id/reject", authRequired, seniorLead, h.Auth.Reject)
	auth.POST("/admin/reset-password", authRequired, seniorLead, h.Auth.AdminResetPassword)

	api.GET("/staff", h.Staff.List)
	api.GET("/courses", h.Staff.Courses)
	api.POST("/staff", authRequired, seniorLead, h.Staff.Create)
	api.PUT("/staff/:nuid", authRequired, seniorLead, h.Staff.Update)
	api.DELETE("/staff/:nuid", authRequired, seniorLead, h.Staff.Delete)
	api.GET("/staff/:nuid/supervision", authRequired, seniorLead, h.Staff.Supervision)
	api.PUT("/staff/:nuid/supervision", authRequired, seniorLead, h.Staff.ReplaceSupervision)
	api.GET("/staff/:nuid/schedule", authRequired, h.Schedule.ListForStaff)
	api.PUT("/staff/:nuid/schedule", authRequired, h.Schedule.ReplaceForStaff)

	schedule := api.Group("/schedule", authRequired)
	schedule.GET("/mine", middleware.RequireStaff(), h.Schedule.Mine)
	schedule.POST("", h.Schedule.Create)
	schedule.PUT("/:id", h.Schedule.Update)
	schedule.DELETE("/:id", h.Schedule.Delete)
	schedule.POST("/:id/sessions", h.Schedule.GenerateSessions)

	api.GET("/office-hours", h.OfficeHours.List)
	api.GET("/office-hours/sessions", h.OfficeHours.Upcoming)
	api.POST("/office-hours/sessions/:id/queue", authRequired, h.OfficeHours.JoinQueue)

	api.POST("/feedback", h.Feedback.Create)
	api.GET("/feedback", authRequired, middleware.RequireStaff(), h.Feedback.List)
	api.GET("/feedback/export", authRequired, middleware.RequireStaff(), h.Feedback.Export)

	r.NoRoute(spaFallback(prefix, opts.StaticDir))
	return r
}

// spaFallback serves files under staticDir, falling back to index.html so the
// client-side router can resolve the path. API paths get a JSON 404.
func spaFallback(prefix, staticDir string) gin.HandlerFunc {
	notFound := appErrors.Clone(appErrors.ErrNotFound, "route not found")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == prefix || strings.HasPrefix(path, prefix+"/") || staticDir == "" {
			response.Error(c, notFound)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			response.Error(c, notFound)
			return
		}

		// Clean against a rooted path so ".." cannot climb out of staticDir.
		candidate := filepath.Join(staticDir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			response.Error(c, notFound)
			return
		}
		c.File(index)
	}
}
