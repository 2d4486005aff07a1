package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

const (
	HeaderSessionID   = "X-Session-ID"
	ContextSession    = "session"
	DefaultCookieName = "portal_session"
)

// SessionGetter loads a stored session by id.
type SessionGetter interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

type SessionMiddleware struct {
	store      SessionGetter
	cookieName string
}

func NewSessionMiddleware(store SessionGetter, cookieName string) *SessionMiddleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionMiddleware{store: store, cookieName: cookieName}
}

func (m *SessionMiddleware) CookieName() string { return m.cookieName }

// SessionID returns the id from the X-Session-ID header or the session cookie.
func (m *SessionMiddleware) SessionID(c *gin.Context) string {
	if id := c.GetHeader(HeaderSessionID); id != "" {
		return id
	}
	id, _ := c.Cookie(m.cookieName)
	return id
}

// Authenticate loads the caller's session on every request, so a logout or a
// rejected token is seen immediately.
func (m *SessionMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.store.Get(c.Request.Context(), m.SessionID(c))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// RequireRole lets only the given roles through.
func (m *SessionMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, errors.Forbidden("this action is not available for your role"))
	}
}

// CurrentSession returns the session Authenticate stored on the context.
func CurrentSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}
