package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/booking"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type selectCall struct {
	date     civil.Date
	at       string
	doctorID model.ID
}

type fakeService struct {
	started    string
	selected   *selectCall
	loaded     civil.Date
	confirm    *booking.Confirmation
	confirmErr error
	describe   error
}

func wizard(st booking.State) *booking.Wizard {
	return &booking.Wizard{ID: "w1", SessionID: "s1", State: st}
}

func (f *fakeService) Start(ctx context.Context, sess session.Session, preselected string) (*booking.Wizard, error) {
	f.started = preselected
	return wizard(booking.ChoosingSpecialization{Preselected: preselected}), nil
}

func (f *fakeService) Get(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
	if id != "w1" {
		return nil, errors.NewNotFound("booking", nil)
	}
	return wizard(booking.ChoosingSpecialization{}), nil
}

func (f *fakeService) ChooseSpecialization(ctx context.Context, sess session.Session, id, specialization string) (*booking.Wizard, error) {
	return wizard(booking.ChoosingDateTimeAndDoctor{Specialization: specialization}), nil
}

func (f *fakeService) LoadSlots(ctx context.Context, sess session.Session, id string, date civil.Date) (*booking.Wizard, error) {
	f.loaded = date
	return wizard(booking.ChoosingDateTimeAndDoctor{Specialization: "kardiologia", Date: &date}), nil
}

func (f *fakeService) Select(ctx context.Context, sess session.Session, id string, date civil.Date, at string, doctorID model.ID) (*booking.Wizard, error) {
	f.selected = &selectCall{date: date, at: at, doctorID: doctorID}
	return wizard(booking.EnteringDetails{}), nil
}

func (f *fakeService) Describe(ctx context.Context, sess session.Session, id, visitType, reason string) (*booking.Wizard, error) {
	if f.describe != nil {
		return nil, f.describe
	}
	return wizard(booking.Confirming{Reason: reason}), nil
}

func (f *fakeService) Back(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
	return wizard(booking.ChoosingSpecialization{}), nil
}

func (f *fakeService) Confirm(ctx context.Context, sess session.Session, id string) (*booking.Confirmation, error) {
	return f.confirm, f.confirmErr
}

func (f *fakeService) Discard(ctx context.Context, sess session.Session, id string) error {
	return nil
}

func setup(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, session.Session{ID: "s1", Token: "tok", Role: model.RolePatient})
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func call(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestStart(t *testing.T) {
	svc := &fakeService{}
	w, env := call(setup(svc), http.MethodPost, "/api/v1/booking", `{"specialization":" kardiologia "}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "kardiologia", svc.started)
	assert.Contains(t, string(env.Data), `"step":"`+string(booking.StepSpecialization)+`"`)
}

func TestStart_EmptyBody(t *testing.T) {
	svc := &fakeService{}
	w, _ := call(setup(svc), http.MethodPost, "/api/v1/booking", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, svc.started)
}

func TestGet_NotFound(t *testing.T) {
	w, env := call(setup(&fakeService{}), http.MethodGet, "/api/v1/booking/other", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestLoadSlots_ParsesDate(t *testing.T) {
	svc := &fakeService{}
	w, _ := call(setup(svc), http.MethodGet, "/api/v1/booking/w1/slots?date=2024-03-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 10}, svc.loaded)

	w, _ = call(setup(svc), http.MethodGet, "/api/v1/booking/w1/slots", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelect_NumericDoctorID(t *testing.T) {
	svc := &fakeService{}
	w, _ := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/selection", `{"date":"2024-03-10","time":"09:00","doctor_id":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.selected)
	assert.Equal(t, model.ID("5"), svc.selected.doctorID)
	assert.Equal(t, "09:00", svc.selected.at)
}

func TestSelect_RequiresDoctor(t *testing.T) {
	svc := &fakeService{}
	w, _ := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/selection", `{"date":"2024-03-10","time":"09:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.selected)
}

func TestDescribe_ValidationMessage(t *testing.T) {
	svc := &fakeService{describe: errors.NewBadRequest("reason is required", nil)}
	w, env := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/details", `{"reason":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reason is required", env.Message)
}

func TestConfirm_Success(t *testing.T) {
	svc := &fakeService{confirm: &booking.Confirmation{
		Wizard:   wizard(booking.Submitted{AppointmentID: "1001"}),
		Notified: true,
	}}
	w, env := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/confirm", "")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"appointment_id":1001`)
	assert.Contains(t, string(env.Data), `"notified":true`)
}

func TestConfirm_SlotTakenReturnsWizard(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 3, Day: 10}
	svc := &fakeService{
		confirm:    &booking.Confirmation{Wizard: wizard(booking.ChoosingDateTimeAndDoctor{Specialization: "kardiologia", Date: &date})},
		confirmErr: &errors.AppError{Code: errors.ErrConflict, Message: "Slot is already booked", Status: http.StatusConflict},
	}
	w, env := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/confirm", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Slot is already booked", env.Message)
	assert.Contains(t, string(env.Data), `"step":"`+string(booking.StepSlot)+`"`)
}

func TestConfirm_Unauthorized(t *testing.T) {
	svc := &fakeService{confirmErr: errors.Unauthorized(nil)}
	w, _ := call(setup(svc), http.MethodPost, "/api/v1/booking/w1/confirm", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"reauthenticate":true`)
}
