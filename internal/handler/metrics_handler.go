package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext implements Pinger.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      Pinger
	cache   Pinger
	logger  *zap.Logger
}

// NewMetricsHandler constructs a metrics handler. cache may be nil when Redis is disabled.
func NewMetricsHandler(metrics *service.MetricsService, db, cache Pinger, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: metrics, db: db, cache: cache, logger: logger}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness check
// @Tags Health
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready godoc
// @Summary Readiness check
// @Description Pings Postgres. Redis is reported but does not fail readiness.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ready", "database": "ok"}
	code := http.StatusOK
	if h.db == nil {
		status["database"] = "unconfigured"
		code = http.StatusServiceUnavailable
	} else if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		status["cache"] = "ok"
		if err := h.cache.PingContext(ctx); err != nil {
			h.logger.Warn("cache ping failed", zap.Error(err))
			status["cache"] = "unavailable"
		}
	}
	if code != http.StatusOK {
		status["status"] = "unavailable"
	}
	c.JSON(code, status)
}
