package booking

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
)

type fakeAPI struct {
	fakeBackend
	doctors  []model.Doctor
	slots    map[model.ID][]model.AvailabilitySlot
	slotsErr error
	specs    []string
	specsErr error
}

func (f *fakeAPI) Specializations(ctx context.Context) ([]string, error) {
	return f.specs, f.specsErr
}

func (f *fakeAPI) DoctorsBySpecialization(ctx context.Context, specialization string) ([]model.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeAPI) DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error) {
	if f.slotsErr != nil {
		return nil, f.slotsErr
	}
	return f.slots[doctorID], nil
}

func (f *fakeAPI) SearchAvailability(ctx context.Context, specialization string, date civil.Date) ([]model.AvailabilitySlot, error) {
	return nil, nil
}

type fakeLister struct {
	list []model.Appointment
	err  error
}

func (f *fakeLister) Refresh(ctx context.Context, sess session.Session) ([]model.Appointment, error) {
	return f.list, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) BookingConfirmed(ctx context.Context, to string, b Submitted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type harness struct {
	svc      *Service
	api      *fakeAPI
	sessions *session.Store
	lister   *fakeLister
	notifier *fakeNotifier
	sess     session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv := kvstore.NewMemoryStore(time.Minute)
	api := &fakeAPI{
		fakeBackend: fakeBackend{createID: "1001"},
		specs:       []string{"Kardiologia", "Dermatologia"},
		doctors: []model.Doctor{
			{ID: "4", FirstName: "Anna", LastName: "Nowak", Specialization: "Kardiologia"},
			{ID: "5", FirstName: "Jan", LastName: "Kowalski", Specialization: "Kardiologia"},
		},
		slots: map[model.ID][]model.AvailabilitySlot{
			"4": {{ID: "41", DoctorID: "4", StartTime: "2025-03-10T09:00:00", IsAvailable: true}},
			"5": {
				{ID: "42", DoctorID: "5", StartTime: "2025-03-10 09:00:00", IsAvailable: true},
				{ID: "43", DoctorID: "5", StartTime: "2025-03-11T11:00:00", IsAvailable: true},
			},
		},
	}
	sessions := session.NewStore(kv, time.Hour, nil, nil)
	sess := session.Session{ID: "s-1", Token: "tok", UserID: "9", PatientID: "7", Role: model.RolePatient, Email: "jan@example.com"}
	require.NoError(t, sessions.Set(context.Background(), sess))

	h := &harness{
		api:      api,
		sessions: sessions,
		lister:   &fakeLister{list: []model.Appointment{{ID: "1001", Status: model.AppointmentStatusScheduled}}},
		notifier: &fakeNotifier{},
		sess:     sess,
	}
	h.svc = NewService(Deps{
		Store:        NewStore(kv, time.Hour),
		APIFor:       func(string) API { return api },
		Aggregator:   availability.NewService(availability.Config{}, nil, nil),
		Sessions:     sessions,
		Appointments: h.lister,
		Notifier:     h.notifier,
	})
	return h
}

// toConfirming walks a new wizard up to the confirmation step.
func (h *harness) toConfirming(t *testing.T) *Wizard {
	t.Helper()
	ctx := context.Background()
	w, err := h.svc.Start(ctx, h.sess, "")
	require.NoError(t, err)
	_, err = h.svc.ChooseSpecialization(ctx, h.sess, w.ID, "Kardiologia")
	require.NoError(t, err)
	w, err = h.svc.LoadSlots(ctx, h.sess, w.ID, march10)
	require.NoError(t, err)
	require.Equal(t, []string{"09:00"}, w.State.(ChoosingDateTimeAndDoctor).Slots.Times())
	_, err = h.svc.Select(ctx, h.sess, w.ID, march10, "09:00", "5")
	require.NoError(t, err)
	w, err = h.svc.Describe(ctx, h.sess, w.ID, "consultation", "ból głowy")
	require.NoError(t, err)
	require.Equal(t, StepConfirm, w.State.Step())
	return w
}

func TestService_FullBooking(t *testing.T) {
	h := newHarness(t)
	w := h.toConfirming(t)

	res, err := h.svc.Confirm(context.Background(), h.sess, w.ID)
	require.NoError(t, err)
	done := res.Wizard.State.(Submitted)
	assert.Equal(t, model.ID("1001"), done.AppointmentID)
	assert.Equal(t, model.ID("42"), done.Selection.Doctor.AvailabilityID)
	assert.Len(t, res.Appointments, 1)
	assert.True(t, res.Notified)
	assert.Equal(t, []string{"jan@example.com"}, h.notifier.sent)

	stored, err := h.svc.Get(context.Background(), h.sess, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StepSubmitted, stored.State.Step())
}

func TestService_ConfirmTwiceBooksOnce(t *testing.T) {
	h := newHarness(t)
	w := h.toConfirming(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Confirm(context.Background(), h.sess, w.ID)
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.api.requests, 1)
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, errors.HasCode(err, errors.ErrInvalidState))
		}
	}
	assert.Equal(t, 1, failed)
}

func TestService_RefreshAndMailFailuresAreReported(t *testing.T) {
	h := newHarness(t)
	h.lister.err = errors.NewNetwork("backend unreachable", nil)
	h.notifier.err = assert.AnError
	w := h.toConfirming(t)

	res, err := h.svc.Confirm(context.Background(), h.sess, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StepSubmitted, res.Wizard.State.Step())
	assert.Equal(t, "backend unreachable", res.RefreshError)
	assert.False(t, res.Notified)
	assert.NotEmpty(t, res.NotifyError)
}

func TestService_UnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	w := h.toConfirming(t)
	h.api.createErrs = []error{backendError(http.StatusUnauthorized, errors.ErrUnauthorized, "Unauthorized")}

	_, err := h.svc.Confirm(context.Background(), h.sess, w.ID)
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Len(t, h.api.requests, 1)

	_, err = h.sessions.Get(context.Background(), h.sess.ID)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestService_UnauthorizedDuringAggregationClearsSession(t *testing.T) {
	h := newHarness(t)
	h.api.slotsErr = errors.Unauthorized(nil)
	ctx := context.Background()

	w, err := h.svc.Start(ctx, h.sess, "Kardiologia")
	require.NoError(t, err)
	_, err = h.svc.ChooseSpecialization(ctx, h.sess, w.ID, "Kardiologia")
	require.NoError(t, err)
	_, err = h.svc.LoadSlots(ctx, h.sess, w.ID, march10)
	assert.True(t, errors.IsUnauthorized(err))

	_, err = h.sessions.Get(ctx, h.sess.ID)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestService_SlotTakenReturnsToSlotSelection(t *testing.T) {
	h := newHarness(t)
	w := h.toConfirming(t)
	h.api.createErrs = []error{backendError(http.StatusConflict, errors.ErrConflict, "Conflict")}

	res, err := h.svc.Confirm(context.Background(), h.sess, w.ID)
	assert.True(t, errors.HasCode(err, errors.ErrConflict))
	require.NotNil(t, res)

	stored, err := h.svc.Get(context.Background(), h.sess, w.ID)
	require.NoError(t, err)
	st := stored.State.(ChoosingDateTimeAndDoctor)
	assert.Equal(t, march10, *st.Date)
	assert.Nil(t, st.Slots)
}

func TestService_WhitespaceReasonMakesNoCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w, err := h.svc.Start(ctx, h.sess, "")
	require.NoError(t, err)
	_, err = h.svc.ChooseSpecialization(ctx, h.sess, w.ID, "Kardiologia")
	require.NoError(t, err)
	_, err = h.svc.LoadSlots(ctx, h.sess, w.ID, march10)
	require.NoError(t, err)
	_, err = h.svc.Select(ctx, h.sess, w.ID, march10, "09:00", "4")
	require.NoError(t, err)

	_, err = h.svc.Describe(ctx, h.sess, w.ID, "consultation", "   ")
	assert.True(t, errors.HasCode(err, errors.ErrBadRequest))
	assert.Empty(t, h.api.requests)

	stored, err := h.svc.Get(ctx, h.sess, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StepDetails, stored.State.Step())
}

func TestService_WrongStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w, err := h.svc.Start(ctx, h.sess, "")
	require.NoError(t, err)

	_, err = h.svc.LoadSlots(ctx, h.sess, w.ID, march10)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidState))
	_, err = h.svc.Confirm(ctx, h.sess, w.ID)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidState))
}

func TestService_OtherSessionCannotSeeWizard(t *testing.T) {
	h := newHarness(t)
	w, err := h.svc.Start(context.Background(), h.sess, "")
	require.NoError(t, err)

	other := h.sess
	other.ID = "s-2"
	_, err = h.svc.Get(context.Background(), other, w.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestService_BackAndDiscard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.toConfirming(t)

	w, err := h.svc.Back(ctx, h.sess, w.ID)
	require.NoError(t, err)
	assert.Equal(t, StepDetails, w.State.Step())
	w, err = h.svc.Back(ctx, h.sess, w.ID)
	require.NoError(t, err)
	st := w.State.(ChoosingDateTimeAndDoctor)
	assert.Equal(t, "09:00", st.Time)

	require.NoError(t, h.svc.Discard(ctx, h.sess, w.ID))
	_, err = h.svc.Get(ctx, h.sess, w.ID)
	assert.True(t, errors.IsNotFound(err))
}

func heldLocks(s *Service) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func TestService_WizardLocksAreReleased(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w := h.toConfirming(t)
	_, err := h.svc.Confirm(ctx, h.sess, w.ID)
	require.NoError(t, err)
	assert.Zero(t, heldLocks(h.svc))

	for _, id := range []string{"missing-1", "missing-2", "missing-3"} {
		_, err := h.svc.Back(ctx, h.sess, id)
		assert.True(t, errors.IsNotFound(err))
		_, err = h.svc.Confirm(ctx, h.sess, id)
		assert.True(t, errors.IsNotFound(err))
		assert.True(t, errors.IsNotFound(h.svc.Discard(ctx, h.sess, id)))
	}
	assert.Zero(t, heldLocks(h.svc))

	other, err := h.svc.Start(ctx, h.sess, "Kardiologia")
	require.NoError(t, err)
	require.NoError(t, h.svc.Discard(ctx, h.sess, other.ID))
	assert.Zero(t, heldLocks(h.svc))
}

func TestService_ConcurrentStepsShareOneLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w, err := h.svc.Start(ctx, h.sess, "")
	require.NoError(t, err)
	_, err = h.svc.ChooseSpecialization(ctx, h.sess, w.ID, "Kardiologia")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.svc.LoadSlots(ctx, h.sess, w.ID, march10)
		}()
	}
	wg.Wait()

	assert.Zero(t, heldLocks(h.svc))
	got, err := h.svc.Get(ctx, h.sess, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, got.State.(ChoosingDateTimeAndDoctor).Slots.Times())
}

func TestWizard_StoreRoundTrip(t *testing.T) {
	store := NewStore(kvstore.NewMemoryStore(time.Minute), time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, st := range []State{
		ChoosingSpecialization{Preselected: "Kardiologia"},
		slotStep(t),
		confirming(t),
		confirming(t).Submitted("1001"),
	} {
		w := &Wizard{ID: "w-" + string(st.Step()), SessionID: "s-1", State: st, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, store.Save(ctx, w))

		got, err := store.Get(ctx, "s-1", w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.State, got.State)
		assert.True(t, now.Equal(got.CreatedAt))
	}
}
