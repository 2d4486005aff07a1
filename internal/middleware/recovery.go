package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

// Recovery turns a handler panic into a server_fault response unless the
// handler already started writing.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ev := log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("route", c.FullPath()).
				Str("request_id", c.GetString(ContextRequestID))
			if sess, ok := CurrentSession(c); ok {
				ev = ev.Str("session_id", sess.ID)
			}
			ev.Msg("handler panicked")

			if !c.Writer.Written() {
				httputil.RespondWithError(c, errors.NewInternal(fmt.Errorf("panic: %v", r)))
			}
			c.Abort()
		}()
		c.Next()
	}
}
