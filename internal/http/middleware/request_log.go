package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/identity-backend/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler chain is done.
// Successful health probes log at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		l := log.Ctx(c.Request.Context())
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, "error", last.Error())
		}

		switch {
		case status >= 500:
			l.Error("http request", fields...)
		case status >= 400:
			l.Warn("http request", fields...)
		case route == healthRoute:
			l.Debug("http request", fields...)
		default:
			l.Info("http request", fields...)
		}
	}
}

const healthRoute = "/healthcheck"
