package httpmiddleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ratelimiter"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"

	// Gin context keys.
	KeyRequestID = "requestID"
	KeyUserID    = "userID"
	KeyLogger    = "logger"
)

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger attaches a request-scoped logger to the context and writes one
// access log line after the handler returns.
func Logger(base *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(KeyRequestID)
		c.Set(KeyLogger, base.WithTrace(requestID, ""))

		c.Next()

		info := models.RequestInfo{
			RequestID:  requestID,
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
		}
		if info.Path == "" {
			info.Path = c.Request.URL.Path
		}
		l := base.WithTrace(requestID, c.GetString(KeyUserID)).WithRequest(info)
		switch {
		case info.Status >= http.StatusInternalServerError:
			l.Error("request failed")
		case info.Status >= http.StatusBadRequest:
			l.Warn("request rejected")
		default:
			l.Info("request handled")
		}
	}
}

// LoggerFrom returns the request-scoped logger, or fallback outside a request.
// Once the user is known the logger carries the user id too.
func LoggerFrom(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	v, ok := c.Get(KeyLogger)
	if !ok {
		return fallback
	}
	l, ok := v.(*logger.Logger)
	if !ok {
		return fallback
	}
	if userID := c.GetString(KeyUserID); userID != "" {
		return l.WithTrace(c.GetString(KeyRequestID), userID)
	}
	return l
}

// RateLimit is a middleware that applies a per-key rate limit. key extracts
// the caller's identity; requests with an empty key are not limited. When the
// limiter itself fails the request is let through and the failure logged.
func RateLimit(limiter ratelimiter.RateLimiter, key func(*gin.Context) string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), k)
		if err != nil {
			LoggerFrom(c, log).WithErr("rate_limit", err).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			retry := int(time.Until(res.ResetAt).Seconds() + 0.5)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}

// UserKey keys rate limits on the authenticated user.
func UserKey(c *gin.Context) string {
	return c.GetString(KeyUserID)
}
