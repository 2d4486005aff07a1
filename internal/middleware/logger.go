package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Logger logs one line per request. Bodies are never logged since they carry
// credentials and PESEL numbers.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := log.With().
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent()).
			Logger()

		if sess, ok := CurrentSession(c); ok {
			logger = logger.With().Str("session_id", sess.ID).Str("role", string(sess.Role)).Logger()
		}

		switch {
		case status >= 500:
			logger.Error().Msg("Server error")
		case status >= 400:
			logger.Warn().Msg("Client error")
		default:
			logger.Info().Msg("Request processed")
		}
	}
}
