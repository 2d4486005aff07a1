package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/identity"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type fakeService struct {
	current *model.Patient
	saved   *model.UpdatePatientRequest
	saveErr error
	scope   identity.Scope
}

func (f *fakeService) Profile(ctx context.Context, sess session.Session) (*model.Patient, error) {
	return f.current, nil
}

func (f *fakeService) SaveProfile(ctx context.Context, sess session.Session, req model.UpdatePatientRequest) (*model.Patient, error) {
	f.saved = &req
	if f.saveErr != nil {
		return f.current, f.saveErr
	}
	updated := *f.current
	updated.Phone = req.Phone
	return &updated, nil
}

func (f *fakeService) Appointments(ctx context.Context, sess session.Session, scope identity.Scope) ([]model.Appointment, error) {
	f.scope = scope
	return []model.Appointment{{ID: "1", Status: model.AppointmentStatusScheduled}}, nil
}

func setup(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, session.Session{ID: "s1", Token: "tok", Role: model.RolePatient, PatientID: "7"})
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func call(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, httputil.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp httputil.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func anna() *model.Patient {
	return &model.Patient{ID: "7", FirstName: "Anna", LastName: "Kowalska", Phone: "600700800"}
}

func TestUpdate_PassesRawFormToService(t *testing.T) {
	svc := &fakeService{current: anna()}
	w, _ := call(setup(svc), http.MethodPatch, "/api/v1/me/profile",
		`{"first_name":" Anna ","last_name":"Kowalska","pesel":"0227 1409 867","phone":"600 700 801"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.saved)
	assert.Equal(t, " Anna ", svc.saved.FirstName)
	assert.Equal(t, "0227 1409 867", svc.saved.PESEL)
}

func TestUpdate_FailureReturnsLastSavedProfile(t *testing.T) {
	svc := &fakeService{current: anna(), saveErr: errors.NewBadRequest("Phone number must have at least 9 digits", nil)}
	w, resp := call(setup(svc), http.MethodPatch, "/api/v1/me/profile", `{"first_name":"Anna","last_name":"Kowalska","phone":"12"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "600700800", data["phone"])
}

func TestUpdate_MalformedBody(t *testing.T) {
	svc := &fakeService{current: anna()}
	w, resp := call(setup(svc), http.MethodPatch, "/api/v1/me/profile", `{"first_name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.saved)
	assert.NotNil(t, resp.Data)
}

func TestAppointments_Scope(t *testing.T) {
	svc := &fakeService{}
	w, _ := call(setup(svc), http.MethodGet, "/api/v1/me/appointments?scope=upcoming", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, identity.ScopeUpcoming, svc.scope)

	w, _ = call(setup(svc), http.MethodGet, "/api/v1/me/appointments?scope=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
