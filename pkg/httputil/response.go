package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Status         string                 `json:"status"`
	Message        string                 `json:"message,omitempty"`
	Code           string                 `json:"code,omitempty"`
	Data           interface{}            `json:"data,omitempty"`
	Errors         []validator.FieldError `json:"errors,omitempty"`
	Reauthenticate bool                   `json:"reauthenticate,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError maps the error class to an HTTP status and sends it.
// Backend validation messages are passed through unchanged.
func RespondWithError(c *gin.Context, err error) {
	RespondWithErrorData(c, err, nil)
}

// RespondWithErrorData is RespondWithError with the state the failed
// operation left behind attached as data.
func RespondWithErrorData(c *gin.Context, err error, data interface{}) {
	if fields := validator.Fields(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{
			Status:  "error",
			Message: "validation failed",
			Code:    errors.ErrBadRequest.String(),
			Errors:  fields,
		})
		return
	}

	appErr, ok := errors.As(err)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
			Status:  "error",
			Message: "Internal server error",
			Code:    errors.ErrInternal.String(),
		})
		return
	}

	resp := Response{
		Status:  "error",
		Message: appErr.Message,
		Code:    appErr.Code.String(),
		Data:    data,
	}
	if appErr.Code == errors.ErrUnauthorized {
		resp.Reauthenticate = true
	}
	c.AbortWithStatusJSON(StatusFor(appErr.Code), resp)
}

// StatusFor returns the HTTP status the portal answers with for an error class.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrPatientLinkage:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden:
		return http.StatusForbidden
	case errors.ErrConflict, errors.ErrInvalidState:
		return http.StatusConflict
	case errors.ErrNetwork, errors.ErrIncomplete:
		return http.StatusBadGateway
	case errors.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
