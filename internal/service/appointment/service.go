package appointment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type Backend interface {
	Appointment(ctx context.Context, id model.ID) (*model.Appointment, error)
	CompleteAppointment(ctx context.Context, id model.ID) error
	CancelAppointment(ctx context.Context, id model.ID) error
	DeleteAppointment(ctx context.Context, id model.ID) error
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

func (s *Service) Get(ctx context.Context, sess session.Session, id model.ID) (*model.Appointment, error) {
	apt, err := s.backend(sess.Token).Appointment(ctx, id)
	return apt, s.reject(ctx, sess, err)
}

// Complete marks a scheduled visit as done. Only doctors complete visits.
func (s *Service) Complete(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsDoctor() && !sess.IsAdmin() {
		return errors.Forbidden("only doctors can complete appointments")
	}
	return s.transition(ctx, sess, id, model.AppointmentStatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, sess session.Session, id model.ID) error {
	return s.transition(ctx, sess, id, model.AppointmentStatusCancelled)
}

func (s *Service) Delete(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsAdmin() {
		return errors.Forbidden("only administrators can delete appointments")
	}
	if err := s.backend(sess.Token).DeleteAppointment(ctx, id); err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) transition(ctx context.Context, sess session.Session, id model.ID, to model.AppointmentStatus) error {
	api := s.backend(sess.Token)

	apt, err := api.Appointment(ctx, id)
	if err != nil {
		return s.reject(ctx, sess, err)
	}
	if !CanTransition(apt.Status, to) {
		return errors.NewInvalidState("appointment is " + string(apt.Status) + " and cannot become " + string(to))
	}

	switch to {
	case model.AppointmentStatusCompleted:
		err = api.CompleteAppointment(ctx, id)
	case model.AppointmentStatusCancelled:
		err = api.CancelAppointment(ctx, id)
	}
	if err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(apt.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")
	return nil
}

// CanTransition reports whether a visit in status from may move to status to.
// An empty status is treated as scheduled.
func CanTransition(from, to model.AppointmentStatus) bool {
	if from == "" {
		from = model.AppointmentStatusScheduled
	}
	switch from {
	case model.AppointmentStatusScheduled:
		return to == model.AppointmentStatusCompleted || to == model.AppointmentStatusCancelled || to == model.AppointmentStatusInProgress
	case model.AppointmentStatusInProgress:
		return to == model.AppointmentStatusCompleted || to == model.AppointmentStatusCancelled
	default:
		return false
	}
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
