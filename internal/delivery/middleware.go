package delivery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/pkg/metrics"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderRequestID = "X-Request-ID"

	callerKey = "caller"
)

// IdentityMiddleware reads the identity that the gateway verified and forwarded.
// The headers are trusted; this service must only be reachable through the gateway.
func IdentityMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader(HeaderUserID)
		roleStr := c.GetHeader(HeaderUserRole)
		if userIDStr == "" || roleStr == "" {
			log.Warnf("Middleware: %s or %s header is missing", HeaderUserID, HeaderUserRole)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "User identification missing"})
			return
		}

		userID, err := strconv.Atoi(userIDStr)
		if err != nil || userID <= 0 {
			log.Warnf("Middleware: Invalid %s header value: %s", HeaderUserID, userIDStr)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid user identification data"})
			return
		}
		role, ok := domain.ParseRole(roleStr)
		if !ok {
			log.Warnf("Middleware: Invalid %s header value: %s", HeaderUserRole, roleStr)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid user role"})
			return
		}

		c.Set(callerKey, domain.Caller{ID: userID, Role: role})
		c.Next()
	}
}

func callerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}

// RequestLogger logs each request and records it in the HTTP metrics when m is not nil.
func RequestLogger(logger *logrus.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		if m != nil {
			m.HTTPRequests.WithLabelValues(handler, strconv.Itoa(statusCode)).Inc()
			m.HTTPLatencyMS.WithLabelValues(handler).Observe(float64(latency.Microseconds()) / 1000)
		}

		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  latency.Milliseconds(),
			"request_id":  reqID,
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else if statusCode >= 500 {
			entry.Error("Request completed with server error")
		} else if statusCode >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}
