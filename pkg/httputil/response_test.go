package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(err error) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithError_Unauthorized(t *testing.T) {
	w, body := respond(errors.Unauthorized(nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, body.Reauthenticate)
	assert.Equal(t, "authentication_expired", body.Code)
}

func TestRespondWithError_PassesBackendMessage(t *testing.T) {
	err := &errors.AppError{Code: errors.ErrBadRequest, Status: 400, Message: "Reason is too long"}
	w, body := respond(err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Reason is too long", body.Message)
	assert.False(t, body.Reauthenticate)
}

func TestRespondWithError_Unclassified(t *testing.T) {
	w, body := respond(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", body.Status)
}

func TestRespondWithError_ValidationFields(t *testing.T) {
	type req struct {
		Reason string `json:"reason" binding:"notblank"`
	}
	err := validator.New().Validate(req{Reason: " "})
	require.Error(t, err)

	w, body := respond(err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "reason", body.Errors[0].Field)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, StatusFor(errors.ErrNetwork))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(errors.ErrTimeout))
	assert.Equal(t, http.StatusConflict, StatusFor(errors.ErrConflict))
	assert.Equal(t, http.StatusBadGateway, StatusFor(errors.ErrIncomplete))
}
