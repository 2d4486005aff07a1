package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type fakeBackend struct {
	slots   []model.AvailabilitySlot
	slotErr error
	created []model.AvailabilityRequest
	updated []model.AvailabilityRequest
	deleted []model.ID
	doctor  *model.Doctor
}

func (f *fakeBackend) DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error) {
	return f.slots, f.slotErr
}

func (f *fakeBackend) CreateAvailability(ctx context.Context, req model.AvailabilityRequest) error {
	f.created = append(f.created, req)
	return nil
}

func (f *fakeBackend) UpdateAvailability(ctx context.Context, id model.ID, req model.AvailabilityRequest) error {
	f.updated = append(f.updated, req)
	return nil
}

func (f *fakeBackend) DeleteAvailability(ctx context.Context, id model.ID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) DoctorByUser(ctx context.Context, userID model.ID) (*model.Doctor, error) {
	return f.doctor, nil
}

var doctor = session.Session{ID: "s-d", Role: model.RoleDoctor, DoctorID: "5"}

func TestCreate_ForcesOwnDoctor(t *testing.T) {
	api := &fakeBackend{}
	svc := NewService(func(string) Backend { return api }, nil, nil)

	err := svc.Create(context.Background(), doctor, model.AvailabilityRequest{
		DoctorID: "99", StartTime: "2025-03-10T09:00:00", EndTime: "2025-03-10T09:30:00",
	})
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, model.ID("5"), api.created[0].DoctorID)
	assert.True(t, *api.created[0].IsAvailable)
}

func TestCreate_ResolvesDoctorByUser(t *testing.T) {
	api := &fakeBackend{doctor: &model.Doctor{ID: "8"}}
	svc := NewService(func(string) Backend { return api }, nil, nil)

	sess := session.Session{Role: model.RoleDoctor, UserID: "3"}
	require.NoError(t, svc.Create(context.Background(), sess, model.AvailabilityRequest{
		StartTime: "2025-03-10 14:00", EndTime: "2025-03-10 15:00",
	}))
	assert.Equal(t, model.ID("8"), api.created[0].DoctorID)
}

func TestCreate_PatientForbidden(t *testing.T) {
	svc := NewService(func(string) Backend { return &fakeBackend{} }, nil, nil)
	err := svc.Create(context.Background(), session.Session{Role: model.RolePatient}, model.AvailabilityRequest{})
	assert.True(t, errors.HasCode(err, errors.ErrForbidden))
}

func TestSlots_SortedAndNotFoundIsEmpty(t *testing.T) {
	api := &fakeBackend{slots: []model.AvailabilitySlot{
		{ID: "2", StartTime: "2025-03-10T11:00:00"},
		{ID: "1", StartTime: "2025-03-10T09:00:00"},
	}}
	svc := NewService(func(string) Backend { return api }, nil, nil)

	slots, err := svc.Slots(context.Background(), doctor)
	require.NoError(t, err)
	assert.Equal(t, model.ID("1"), slots[0].ID)

	api.slotErr = errors.NewNotFound("availability", nil)
	slots, err = svc.Slots(context.Background(), doctor)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, ValidateWindow("2025-03-10T09:00:00", "2025-03-10T09:30:00"))
	assert.Error(t, ValidateWindow("2025-03-10T09:30:00", "2025-03-10T09:00:00"))
	assert.Error(t, ValidateWindow("2025-03-10T09:00:00", "2025-03-11T09:30:00"))
	assert.Error(t, ValidateWindow("tomorrow 9:00", "2025-03-10T09:30:00"))
}
