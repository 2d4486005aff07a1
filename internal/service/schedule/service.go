// Package schedule lets doctors publish and withdraw their own availability.
package schedule

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/slottime"
)

type Backend interface {
	DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error)
	CreateAvailability(ctx context.Context, req model.AvailabilityRequest) error
	UpdateAvailability(ctx context.Context, id model.ID, req model.AvailabilityRequest) error
	DeleteAvailability(ctx context.Context, id model.ID) error
	DoctorByUser(ctx context.Context, userID model.ID) (*model.Doctor, error)
}

type BackendFor func(token string) Backend

type Service struct {
	backend  BackendFor
	sessions session.Clearer
	logger   *zerolog.Logger
}

func NewService(backend BackendFor, sessions session.Clearer, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{backend: backend, sessions: sessions, logger: logger}
}

// Slots lists the signed-in doctor's availability ordered by start time.
func (s *Service) Slots(ctx context.Context, sess session.Session) ([]model.AvailabilitySlot, error) {
	api := s.backend(sess.Token)
	doctorID, err := s.doctorID(ctx, api, sess)
	if err != nil {
		return nil, s.reject(ctx, sess, err)
	}
	slots, err := api.DoctorAvailability(ctx, doctorID)
	if err != nil {
		if errors.IsNotFound(err) {
			return []model.AvailabilitySlot{}, nil
		}
		return nil, s.reject(ctx, sess, err)
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots, nil
}

func (s *Service) Create(ctx context.Context, sess session.Session, req model.AvailabilityRequest) error {
	api := s.backend(sess.Token)
	doctorID, err := s.doctorID(ctx, api, sess)
	if err != nil {
		return s.reject(ctx, sess, err)
	}
	if err := ValidateWindow(req.StartTime, req.EndTime); err != nil {
		return err
	}
	req.DoctorID = doctorID
	if req.IsAvailable == nil {
		available := true
		req.IsAvailable = &available
	}
	if err := api.CreateAvailability(ctx, req); err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().Str("doctor_id", doctorID.String()).Str("start", req.StartTime).Msg("availability published")
	return nil
}

func (s *Service) Update(ctx context.Context, sess session.Session, id model.ID, req model.AvailabilityRequest) error {
	api := s.backend(sess.Token)
	doctorID, err := s.doctorID(ctx, api, sess)
	if err != nil {
		return s.reject(ctx, sess, err)
	}
	if req.StartTime != "" || req.EndTime != "" {
		if err := ValidateWindow(req.StartTime, req.EndTime); err != nil {
			return err
		}
	}
	req.DoctorID = doctorID
	return s.reject(ctx, sess, api.UpdateAvailability(ctx, id, req))
}

func (s *Service) Delete(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsDoctor() {
		return errors.Forbidden("only doctors manage availability")
	}
	return s.reject(ctx, sess, s.backend(sess.Token).DeleteAvailability(ctx, id))
}

func (s *Service) doctorID(ctx context.Context, api Backend, sess session.Session) (model.ID, error) {
	if !sess.IsDoctor() {
		return "", errors.Forbidden("only doctors manage availability")
	}
	if !sess.DoctorID.IsZero() {
		return sess.DoctorID, nil
	}
	d, err := api.DoctorByUser(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if d.ID.IsZero() {
		return "", errors.NewInvalidState("no doctor record is linked to this account")
	}
	return d.ID, nil
}

// ValidateWindow requires both ends on the same day with the end after the start.
func ValidateWindow(start, end string) error {
	startDate, ok := slottime.DateOf(start)
	if !ok {
		return errors.NewBadRequest("start time must begin with a YYYY-MM-DD date", nil)
	}
	endDate, ok := slottime.DateOf(end)
	if !ok {
		return errors.NewBadRequest("end time must begin with a YYYY-MM-DD date", nil)
	}
	startClock, ok := slottime.TimeOfDay(start)
	if !ok {
		return errors.NewBadRequest("start time has no time of day", nil)
	}
	endClock, ok := slottime.TimeOfDay(end)
	if !ok {
		return errors.NewBadRequest("end time has no time of day", nil)
	}
	if startDate != endDate {
		return errors.NewBadRequest("availability must start and end on the same day", nil)
	}
	if endClock <= startClock {
		return errors.NewBadRequest("end time must be after start time", nil)
	}
	return nil
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
