package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows any origin. The portal front ends send the session
// cookie, so credentials are on and the request origin is echoed back.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", HeaderSessionID, HeaderXRequestID},
		ExposeHeaders:    []string{HeaderXRequestID, HeaderSessionID},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// CORS answers preflight requests and echoes allowed origins. Unknown origins
// get no CORS headers at all.
func CORS(config CORSConfig) gin.HandlerFunc {
	wildcard := false
	origins := make(map[string]struct{}, len(config.AllowOrigins))
	for _, o := range config.AllowOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")
	expose := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		if _, ok := origins[origin]; ok {
			allowed = origin
		} else if wildcard {
			allowed = "*"
			if config.AllowCredentials && origin != "" {
				allowed = origin
			}
		}

		if allowed != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Expose-Headers", expose)
			h.Set("Access-Control-Max-Age", maxAge)
			if config.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
