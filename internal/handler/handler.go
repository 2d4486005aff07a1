// Package handler holds the helpers shared by the gin handlers.
package handler

import (
	stderrors "errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

// Session returns the caller's session, answering 401 when there is none.
func Session(c *gin.Context) (session.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
	}
	return sess, ok
}

// ParamID reads a path id, answering 400 when it is blank.
func ParamID(c *gin.Context, name string) (model.ID, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		httputil.RespondWithError(c, errors.NewBadRequest(name+" is required", nil))
		return "", false
	}
	return model.ID(id), true
}

// BindJSON decodes and validates the body. Field failures are reported per
// field; anything else is a malformed body.
func BindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	switch {
	case validator.Fields(err) != nil:
		httputil.RespondWithError(c, err)
	case stderrors.Is(err, io.EOF):
		httputil.RespondWithError(c, errors.NewBadRequest("request body is required", err))
	default:
		httputil.RespondWithError(c, errors.NewBadRequest("invalid request body", err))
	}
	return false
}
