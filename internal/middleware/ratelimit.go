package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/la-portal-api/internal/service"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/ratelimit"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

// RateLimit bounds requests per client IP under rule. Store failures let the request through.
func RateLimit(limiter *ratelimit.Limiter, rule ratelimit.Rule, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), rule, c.ClientIP())
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("rule", rule.Name), zap.Error(err))
		}
		if !decision.Allowed {
			metrics.RecordRateLimited(rule.Name)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			response.Abort(c, appErrors.ErrRateLimited)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
