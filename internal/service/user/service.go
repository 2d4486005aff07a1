package user

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

type Backend interface {
	PendingUsers(ctx context.Context) ([]model.User, error)
	ActivateUser(ctx context.Context, id model.ID) error
	DeleteUser(ctx context.Context, id model.ID) error
	RegisterPatient(ctx context.Context, req model.RegisterPatientRequest) error
	RegisterDoctor(ctx context.Context, req model.RegisterDoctorRequest) error
}

type BackendFor func(token string) Backend

// Registration summarizes an accepted sign-up. New accounts wait for an
// administrator to activate them.
type Registration struct {
	Email     string      `json:"email"`
	Role      model.Role  `json:"role"`
	BirthDate *civil.Date `json:"birth_date,omitempty"`
	Pending   bool        `json:"pending"`
}

type Service struct {
	backend   BackendFor
	sessions  session.Clearer
	validator validator.Validator
	logger    *zerolog.Logger
}

func NewService(backend BackendFor, sessions session.Clearer, v validator.Validator, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if v == nil {
		v = validator.New()
	}
	return &Service{backend: backend, sessions: sessions, validator: v, logger: logger}
}

func (s *Service) RegisterPatient(ctx context.Context, req model.RegisterPatientRequest) (*Registration, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.PESEL = validator.NormalizePESEL(req.PESEL)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	birth, err := validator.PESELBirthDate(req.PESEL)
	if err != nil {
		return nil, errors.NewBadRequest("Invalid PESEL number", err)
	}

	if err := s.backend("").RegisterPatient(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().Str("role", string(model.RolePatient)).Msg("patient registered")
	return &Registration{Email: req.Email, Role: model.RolePatient, BirthDate: &birth, Pending: true}, nil
}

func (s *Service) RegisterDoctor(ctx context.Context, req model.RegisterDoctorRequest) (*Registration, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.backend("").RegisterDoctor(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().Str("role", string(model.RoleDoctor)).Msg("doctor registered")
	return &Registration{Email: req.Email, Role: model.RoleDoctor, Pending: true}, nil
}

func (s *Service) Pending(ctx context.Context, sess session.Session) ([]model.User, error) {
	if !sess.IsAdmin() {
		return nil, errors.Forbidden("administrator role required")
	}
	users, err := s.backend(sess.Token).PendingUsers(ctx)
	return users, s.reject(ctx, sess, err)
}

func (s *Service) Activate(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsAdmin() {
		return errors.Forbidden("administrator role required")
	}
	if err := s.backend(sess.Token).ActivateUser(ctx, id); err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().Str("user_id", id.String()).Msg("user activated")
	return nil
}

func (s *Service) Delete(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsAdmin() {
		return errors.Forbidden("administrator role required")
	}
	if id == sess.UserID {
		return errors.NewBadRequest("administrators cannot delete their own account", nil)
	}
	if err := s.backend(sess.Token).DeleteUser(ctx, id); err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
