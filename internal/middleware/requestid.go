package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-portal/pkg/apiclient"
)

const (
	HeaderXRequestID = apiclient.RequestIDHeader
	ContextRequestID = "request_id"

	maxRequestIDLen = 128
)

// RequestID reuses a caller-supplied id when it looks sane, otherwise mints
// one, and forwards it to every backend call made for the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}

		c.Set(ContextRequestID, rid)
		c.Writer.Header().Set(HeaderXRequestID, rid)
		c.Request = c.Request.WithContext(apiclient.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
