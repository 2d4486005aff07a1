package booking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/medapi"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/apiclient"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

type fakeBackend struct {
	mu         sync.Mutex
	createErrs []error
	createID   model.ID
	requests   []model.CreateAppointmentRequest
	me         *model.AuthUser
	meErr      error
	meCalls    int
	patient    *model.Patient
	patientErr error
}

func (f *fakeBackend) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (model.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	if n < len(f.createErrs) && f.createErrs[n] != nil {
		return "", f.createErrs[n]
	}
	return f.createID, nil
}

func (f *fakeBackend) Me(ctx context.Context) (*model.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	return f.me, f.meErr
}

func (f *fakeBackend) PatientByUser(ctx context.Context, userID model.ID) (*model.Patient, error) {
	return f.patient, f.patientErr
}

func backendError(status int, code errors.ErrorCode, message string) error {
	return &errors.AppError{Code: code, Status: status, Message: message, Payload: map[string]interface{}{"message": message}}
}

func missingPatient() error {
	return backendError(http.StatusBadRequest, errors.ErrBadRequest, "patient_id is required")
}

var patientSession = session.Session{ID: "s-1", Token: "tok", UserID: "9", PatientID: "7", Role: model.RolePatient}

func TestSubmit_Success(t *testing.T) {
	api := &fakeBackend{createID: "1001"}
	st, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, model.ID("1001"), st.(Submitted).AppointmentID)
	require.Len(t, api.requests, 1)
	assert.True(t, api.requests[0].PatientID.IsZero())
}

func TestSubmit_SendsPatientIDWhenEnabled(t *testing.T) {
	api := &fakeBackend{createID: "1001"}
	_, _, err := NewSubmitter(true, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	require.NoError(t, err)
	assert.Equal(t, model.ID("7"), api.requests[0].PatientID)
}

func TestSubmit_RepairsMissingPatientOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	api := &fakeBackend{
		createErrs: []error{missingPatient()},
		createID:   "1001",
		me:         &model.AuthUser{ID: "9", Email: "jan@example.com"},
		patient:    &model.Patient{ID: "77"},
	}

	st, outcome, err := NewSubmitter(false, m, nil).Submit(context.Background(), api, patientSession, confirming(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, model.ID("1001"), st.(Submitted).AppointmentID)
	require.Len(t, api.requests, 2)
	assert.Equal(t, model.ID("77"), api.requests[1].PatientID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatientLinkRepairs.WithLabelValues("recovered")))
}

func TestSubmit_RetryFailureReturnsOriginalError(t *testing.T) {
	api := &fakeBackend{
		createErrs: []error{missingPatient(), missingPatient()},
		me:         &model.AuthUser{ID: "9"},
		patient:    &model.Patient{ID: "77"},
	}

	st, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Len(t, api.requests, 2, "never more than one retry")
	assert.True(t, errors.HasCode(err, errors.ErrPatientLinkage))
	assert.Equal(t, "patient_id is required", errors.MessageOf(err))
	assert.IsType(t, Confirming{}, st)
}

func TestSubmit_LookupFailureReturnsOriginalError(t *testing.T) {
	api := &fakeBackend{
		createErrs: []error{missingPatient()},
		me:         &model.AuthUser{ID: "9"},
		patientErr: errors.NewNotFound("patient", nil),
	}

	_, _, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	assert.True(t, errors.HasCode(err, errors.ErrPatientLinkage))
	assert.Len(t, api.requests, 1)
}

func TestSubmit_UnauthorizedDuringRepair(t *testing.T) {
	api := &fakeBackend{
		createErrs: []error{missingPatient()},
		meErr:      backendError(http.StatusUnauthorized, errors.ErrUnauthorized, "Token expired"),
	}

	_, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	assert.Equal(t, OutcomeUnauthorized, outcome)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Len(t, api.requests, 1)
}

func TestSubmit_UnauthorizedIsNotRetried(t *testing.T) {
	api := &fakeBackend{createErrs: []error{backendError(http.StatusUnauthorized, errors.ErrUnauthorized, "Unauthorized")}}

	_, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	assert.Equal(t, OutcomeUnauthorized, outcome)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Len(t, api.requests, 1)
	assert.Zero(t, api.meCalls)
}

func TestSubmit_SlotTaken(t *testing.T) {
	for name, cause := range map[string]error{
		"conflict":    backendError(http.StatusConflict, errors.ErrConflict, "Conflict"),
		"bad request": backendError(http.StatusBadRequest, errors.ErrBadRequest, "Slot is already booked"),
	} {
		t.Run(name, func(t *testing.T) {
			api := &fakeBackend{createErrs: []error{cause}}
			st, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
			assert.Equal(t, OutcomeSlotTaken, outcome)
			assert.True(t, errors.HasCode(err, errors.ErrConflict))
			back := st.(ChoosingDateTimeAndDoctor)
			assert.Equal(t, march10, *back.Date)
			assert.Nil(t, back.Slots)
		})
	}
}

func TestSubmit_OtherFailureStaysConfirming(t *testing.T) {
	c := confirming(t)
	api := &fakeBackend{createErrs: []error{backendError(http.StatusInternalServerError, errors.ErrInternal, "Internal Server Error")}}

	st, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, c)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
	assert.Equal(t, c, st)
}

func TestSubmit_AgainstBackend(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appointment/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"appointment_id": 1001}`))
	}))
	defer srv.Close()

	api := medapi.New(apiclient.New(srv.URL)).WithToken("tok")
	st, outcome, err := NewSubmitter(false, nil, nil).Submit(context.Background(), api, patientSession, confirming(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.Equal(t, model.ID("1001"), st.(Submitted).AppointmentID)

	assert.Equal(t, 5.0, body["doctor_id"])
	assert.Equal(t, 42.0, body["availability_id"])
	assert.Equal(t, "ból głowy", body["reason"])
	assert.NotContains(t, body, "patient_id")
}
