package availability

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
	"github.com/jwalitptl/clinic-portal/pkg/slottime"
)

type Mode string

const (
	// ModePerDoctor queries each candidate doctor's availability.
	ModePerDoctor Mode = "per_doctor"
	// ModeCombined issues one search for the specialization and date.
	ModeCombined Mode = "combined"
)

const defaultFanOut = 4

// Directory is the slice of the resource clients the aggregator reads.
type Directory interface {
	DoctorsBySpecialization(ctx context.Context, specialization string) ([]model.Doctor, error)
	DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error)
	SearchAvailability(ctx context.Context, specialization string, date civil.Date) ([]model.AvailabilitySlot, error)
}

type Config struct {
	Mode   Mode
	FanOut int
}

type Service struct {
	cfg     Config
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

func NewService(cfg Config, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	if cfg.FanOut <= 0 {
		cfg.FanOut = defaultFanOut
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePerDoctor
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{cfg: cfg, metrics: m, logger: logger}
}

type lookup struct {
	slots []model.AvailabilitySlot
	err   error
}

// Aggregate builds the time table for a specialization on one date. It waits
// for every doctor lookup before answering; one doctor failing does not stop
// the others. A 404 for a doctor counts as no slots. Any other failure fails
// the whole aggregation with one combined error.
func (s *Service) Aggregate(ctx context.Context, dir Directory, specialization string, date civil.Date) (*Table, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAggregation(time.Since(start)) }()

	table := newTable(specialization, date)

	doctors, err := dir.DoctorsBySpecialization(ctx, specialization)
	if err != nil {
		if errors.IsNotFound(err) {
			return table, nil
		}
		return nil, err
	}
	if len(doctors) == 0 {
		return table, nil
	}

	candidates := make(map[model.ID]model.Doctor, len(doctors))
	for _, d := range doctors {
		candidates[d.ID] = d
	}

	var results []lookup
	var owners []model.ID
	switch s.cfg.Mode {
	case ModeCombined:
		slots, err := dir.SearchAvailability(ctx, specialization, date)
		results = []lookup{{slots: slots, err: err}}
		owners = []model.ID{""}
	default:
		results, owners = s.fanOut(ctx, dir, doctors)
	}

	var failures error
	unauthorized := false
	for i, r := range results {
		switch {
		case r.err == nil:
			s.metrics.AggregationLookup("ok")
		case errors.IsNotFound(r.err):
			s.metrics.AggregationLookup("not_found")
			continue
		default:
			s.metrics.AggregationLookup("error")
			if errors.IsUnauthorized(r.err) {
				unauthorized = true
			}
			failures = multierr.Append(failures, describe(owners[i], r.err))
			continue
		}
		for _, slot := range r.slots {
			s.place(table, candidates, owners[i], slot)
		}
	}

	if failures != nil {
		failed := len(multierr.Errors(failures))
		s.logger.Warn().Err(failures).
			Str("specialization", specialization).
			Str("date", date.String()).
			Int("failed", failed).
			Msg("availability aggregation incomplete")
		if unauthorized {
			return nil, errors.Unauthorized(failures)
		}
		return nil, errors.NewIncomplete(
			fmt.Sprintf("availability incomplete: %d of %d lookups failed", failed, len(results)),
			failures,
		)
	}

	table.normalize()
	return table, nil
}

// fanOut runs one lookup per doctor with bounded concurrency. Results are
// indexed by doctor so the merge order does not depend on scheduling.
func (s *Service) fanOut(ctx context.Context, dir Directory, doctors []model.Doctor) ([]lookup, []model.ID) {
	results := make([]lookup, len(doctors))
	owners := make([]model.ID, len(doctors))

	var g errgroup.Group
	g.SetLimit(s.cfg.FanOut)
	for i, d := range doctors {
		i, d := i, d
		owners[i] = d.ID
		g.Go(func() error {
			slots, err := dir.DoctorAvailability(ctx, d.ID)
			results[i] = lookup{slots: slots, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, owners
}

func (s *Service) place(table *Table, candidates map[model.ID]model.Doctor, owner model.ID, slot model.AvailabilitySlot) {
	if !bool(slot.IsAvailable) {
		return
	}
	day, ok := slottime.DateOf(slot.StartTime)
	if !ok {
		s.logger.Debug().Str("availability_id", slot.ID.String()).Msg("slot without readable date skipped")
		return
	}
	if day != table.Date {
		return
	}
	doctorID := slot.DoctorID
	if doctorID.IsZero() {
		doctorID = owner
	}
	doctor, ok := candidates[doctorID]
	if !ok {
		return
	}
	at, ok := slottime.TimeOfDay(slot.StartTime)
	if !ok {
		s.logger.Debug().Str("availability_id", slot.ID.String()).Msg("slot without readable time skipped")
		return
	}
	table.add(at, DoctorSlot{
		AvailabilityID: slot.ID,
		DoctorID:       doctor.ID,
		DoctorName:     doctor.FullName(),
		Specialization: doctor.Specialization,
		LicenseNumber:  doctor.LicenseNumber,
	})
}

func describe(owner model.ID, err error) error {
	if owner.IsZero() {
		return fmt.Errorf("availability search: %w", err)
	}
	return fmt.Errorf("doctor %s: %w", owner, err)
}
