package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/governance/credential"
	"github.com/smallbiznis/panelquote/internal/observability/logger"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"go.uber.org/zap"
)

// WriteCredentialRequired guards routes that change reference data outside the
// correction workflow.
func (s *Server) WriteCredentialRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.credential.Verify(strings.TrimSpace(c.GetHeader(credential.Header))) {
			logger.FromContext(c.Request.Context()).Warn("write credential rejected",
				zap.String("route", c.FullPath()),
			)
			AbortWithError(c, apperror.New(apperror.CodeAuthorization, "write credential not accepted"))
			return
		}
		c.Next()
	}
}

// QuoteRateLimit throttles quotation compute per client address.
func (s *Server) QuoteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.quoteLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.quoteLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("quote rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retry := int(math.Ceil(result.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			logger.FromContext(ctx).Warn("quote rate limit exceeded", zap.String("route", c.FullPath()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// APIMetrics records request counts and latency per route.
func APIMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.ObserveAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
