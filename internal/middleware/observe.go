package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/models"
	"github.com/noah-isme/la-portal-api/internal/service"
	"github.com/noah-isme/la-portal-api/pkg/middleware/requestid"
)

const (
	routeUnmatched  = "unmatched"
	callerAnonymous = "anonymous"
)

// Observe writes one http_request log line and records request metrics after
// the handler chain has run, so routes behind OptionalJWT or JWT report who
// called them. Denials and throttled requests log at warn.
func Observe(l *zap.Logger, metrics *service.MetricsService) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		caller := Principal(c)
		metrics.ObserveHTTPRequest(c.Request.Method, route, callerLabel(caller), status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if caller != nil {
			fields = append(fields,
				zap.String("principal_kind", string(caller.Kind)),
				zap.String("principal", caller.ID),
				zap.String("role", string(caller.Role)),
			)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
	}
}

// callerLabel buckets callers by account table. Ids never become labels.
func callerLabel(p *models.Principal) string {
	if p == nil {
		return callerAnonymous
	}
	return string(p.Kind)
}
