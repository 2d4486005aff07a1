package availability

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

var march10 = civil.Date{Year: 2025, Month: 3, Day: 10}

type fakeDirectory struct {
	mu        sync.Mutex
	doctors   []model.Doctor
	slots     map[model.ID][]model.AvailabilitySlot
	errs      map[model.ID]error
	search    []model.AvailabilitySlot
	searchErr error
	delay     map[model.ID]time.Duration
	calls     int32
}

func (f *fakeDirectory) DoctorsBySpecialization(ctx context.Context, specialization string) ([]model.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeDirectory) DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error) {
	atomic.AddInt32(&f.calls, 1)
	if d := f.delay[doctorID]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[doctorID]; err != nil {
		return nil, err
	}
	return f.slots[doctorID], nil
}

func (f *fakeDirectory) SearchAvailability(ctx context.Context, specialization string, date civil.Date) ([]model.AvailabilitySlot, error) {
	return f.search, f.searchErr
}

func slot(id, doctor, start string, available bool) model.AvailabilitySlot {
	return model.AvailabilitySlot{ID: model.ID(id), DoctorID: model.ID(doctor), StartTime: start, IsAvailable: model.Truth(available)}
}

func cardiologists() []model.Doctor {
	return []model.Doctor{
		{ID: "1", FirstName: "Jan", LastName: "Kowalski", Specialization: "Kardiologia", LicenseNumber: "PWZ-1"},
		{ID: "2", FirstName: "Anna", LastName: "Nowak", Specialization: "Kardiologia", LicenseNumber: "PWZ-2"},
	}
}

func newService(mode Mode) *Service {
	return NewService(Config{Mode: mode, FanOut: 2}, metrics.NewMetrics("test", prometheus.NewRegistry()), nil)
}

func TestAggregate_TwoDoctorsSameTime(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {slot("10", "1", "2025-03-10T09:00:00", true)},
			"2": {slot("20", "2", "2025-03-10 09:00:00", true)},
		},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00"}, table.Times())
	require.Len(t, table.Doctors("09:00"), 2)
	assert.Equal(t, "Anna Nowak", table.Doctors("09:00")[0].DoctorName)
	assert.Equal(t, "Jan Kowalski", table.Doctors("09:00")[1].DoctorName)

	s, ok := table.Lookup("09:00", "1")
	require.True(t, ok)
	assert.Equal(t, model.ID("10"), s.AvailabilityID)
	assert.Equal(t, "PWZ-1", s.LicenseNumber)
}

func TestAggregate_MixedTimestampFormats(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {
				slot("10", "1", "2025-03-10T09:30:00Z", true),
				slot("11", "1", "2025-03-10 14:05", true),
			},
			"2": {slot("20", "2", "2025-03-10 at 9:30", true)},
		},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30", "14:05"}, table.Times())
	assert.Len(t, table.Doctors("09:30"), 2)
}

func TestAggregate_ExcludesUnavailableAndOtherDates(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {
				slot("10", "1", "2025-03-10T09:00:00", false),
				slot("11", "1", "2025-03-11T10:00:00", true),
				{ID: "12", DoctorID: "1", StartTime: "2025-03-10T11:00:00"},
			},
			"2": {slot("20", "2", "2025-03-10T12:00:00", true)},
		},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00"}, table.Times())
}

func TestAggregate_UnreadableDateIsSkippedAndLogged(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {
				slot("10", "1", "Mon, 10 Mar 2025 09:00:00 GMT", true),
				slot("11", "1", "2025-03-10T10:00:00", true),
			},
		},
	}
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	table, err := NewService(Config{}, nil, &logger).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, table.Times())
	assert.Contains(t, buf.String(), "slot without readable date skipped")
	assert.Contains(t, buf.String(), `"availability_id":"10"`)
}

func TestAggregate_NotFoundContributesNothing(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"2": {slot("20", "2", "2025-03-10T09:00:00", true)},
		},
		errs: map[model.ID]error{"1": errors.NewNotFound("availability", nil)},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	require.Len(t, table.Doctors("09:00"), 1)
	assert.Equal(t, model.ID("2"), table.Doctors("09:00")[0].DoctorID)
}

func TestAggregate_FailureIsIncompleteAndSiblingsFinish(t *testing.T) {
	doctors := append(cardiologists(), model.Doctor{ID: "3", FirstName: "Ewa", LastName: "Lis"})
	dir := &fakeDirectory{
		doctors: doctors,
		slots: map[model.ID][]model.AvailabilitySlot{
			"2": {slot("20", "2", "2025-03-10T09:00:00", true)},
			"3": {slot("30", "3", "2025-03-10T10:00:00", true)},
		},
		errs:  map[model.ID]error{"1": errors.NewNetwork("backend unreachable", nil)},
		delay: map[model.ID]time.Duration{"3": 30 * time.Millisecond},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	assert.Nil(t, table)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIncomplete))
	assert.Contains(t, err.Error(), "doctor 1")
	assert.Equal(t, int32(3), atomic.LoadInt32(&dir.calls))
}

func TestAggregate_UnauthorizedWins(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		errs: map[model.ID]error{
			"1": errors.NewNetwork("backend unreachable", nil),
			"2": errors.Unauthorized(nil),
		},
	}

	_, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestAggregate_NoDoctorsIsEmptyTable(t *testing.T) {
	table, err := newService(ModePerDoctor).Aggregate(context.Background(), &fakeDirectory{}, "Kardiologia", march10)
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.True(t, table.Matches("Kardiologia", march10))
}

func TestAggregate_Idempotent(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {slot("10", "1", "2025-03-10T09:00:00", true), slot("11", "1", "2025-03-10T08:00:00", true)},
			"2": {slot("20", "2", "2025-03-10T09:00:00", true)},
		},
	}
	svc := newService(ModePerDoctor)

	first, err := svc.Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	second, err := svc.Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregate_CombinedModeDropsUnknownDoctors(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists(),
		search: []model.AvailabilitySlot{
			slot("10", "1", "2025-03-10T09:00:00", true),
			slot("99", "99", "2025-03-10T09:00:00", true),
			slot("20", "2", "2025-03-10T10:00:00", true),
		},
	}

	table, err := newService(ModeCombined).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, table.Times())
	require.Len(t, table.Doctors("09:00"), 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&dir.calls))
}

func TestAggregate_DuplicateRecordsKeepOnePerDoctor(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists()[:1],
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {slot("12", "1", "2025-03-10T09:00:00", true), slot("9", "1", "2025-03-10T09:00:00", true)},
		},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	require.Len(t, table.Doctors("09:00"), 1)
	assert.Equal(t, model.ID("9"), table.Doctors("09:00")[0].AvailabilityID)
}

func TestAggregate_SlotWithoutDoctorIDBelongsToQueriedDoctor(t *testing.T) {
	dir := &fakeDirectory{
		doctors: cardiologists()[:1],
		slots: map[model.ID][]model.AvailabilitySlot{
			"1": {slot("10", "", "2025-03-10T09:00:00", true)},
		},
	}

	table, err := newService(ModePerDoctor).Aggregate(context.Background(), dir, "Kardiologia", march10)
	require.NoError(t, err)
	_, ok := table.Lookup("09:00", "1")
	assert.True(t, ok)
}
