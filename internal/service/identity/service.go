// Package identity resolves who the caller is and exposes their profile and
// appointment lists.
package identity

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/validator"
)

type Backend interface {
	Me(ctx context.Context) (*model.AuthUser, error)
	Patient(ctx context.Context, id model.ID) (*model.Patient, error)
	PatientByUser(ctx context.Context, userID model.ID) (*model.Patient, error)
	UpdatePatient(ctx context.Context, id model.ID, req model.UpdatePatientRequest) error
	AppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error)
	UpcomingAppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error)
	PastAppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, doctorID model.ID) ([]model.Appointment, error)
	DoctorByUser(ctx context.Context, userID model.ID) (*model.Doctor, error)
}

type BackendFor func(token string) Backend

// Scope narrows a patient's appointment list.
type Scope string

const (
	ScopeAll      Scope = ""
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeAll, "all":
		return ScopeAll, nil
	case ScopeUpcoming:
		return ScopeUpcoming, nil
	case ScopePast:
		return ScopePast, nil
	default:
		return "", errors.NewBadRequest("scope must be upcoming or past", nil)
	}
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

// Profile resolves the caller's patient record by patient id, then by user
// id, and finally falls back to the email from /auth/me.
func (s *Service) Profile(ctx context.Context, sess session.Session) (*model.Patient, error) {
	p, err := s.profile(ctx, sess)
	return p, s.reject(ctx, sess, err)
}

func (s *Service) profile(ctx context.Context, sess session.Session) (*model.Patient, error) {
	api := s.backend(sess.Token)

	if !sess.PatientID.IsZero() {
		return api.Patient(ctx, sess.PatientID)
	}
	if !sess.UserID.IsZero() {
		p, err := api.PatientByUser(ctx, sess.UserID)
		if err == nil || !errors.IsNotFound(err) {
			return p, err
		}
		s.logger.Debug().Str("user_id", sess.UserID.String()).Msg("no patient record for user, using account details")
	}

	me, err := api.Me(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Patient{
		UserID:    me.ID,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Email:     me.Email,
	}, nil
}

// SaveProfile validates and stores the profile. On any failure the last
// known-good profile is returned together with the error.
func (s *Service) SaveProfile(ctx context.Context, sess session.Session, req model.UpdatePatientRequest) (*model.Patient, error) {
	current, err := s.profile(ctx, sess)
	if err != nil {
		return nil, s.reject(ctx, sess, err)
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PESEL = validator.NormalizePESEL(req.PESEL)
	if err := s.validator.Validate(req); err != nil {
		return current, err
	}
	if current.ID.IsZero() {
		return current, errors.NewInvalidState("no patient record is linked to this account")
	}

	api := s.backend(sess.Token)
	if err := api.UpdatePatient(ctx, current.ID, req); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", current.ID.String()).Msg("profile update rejected")
		return current, s.reject(ctx, sess, err)
	}

	updated, err := api.Patient(ctx, current.ID)
	if err != nil {
		merged := *current
		merged.FirstName, merged.LastName, merged.Phone = req.FirstName, req.LastName, req.Phone
		if req.PESEL != "" {
			merged.PESEL = req.PESEL
		}
		return &merged, nil
	}
	return updated, nil
}

// Appointments lists the caller's appointments: a doctor's schedule or a
// patient's visits narrowed by scope.
func (s *Service) Appointments(ctx context.Context, sess session.Session, scope Scope) ([]model.Appointment, error) {
	list, err := s.appointments(ctx, sess, scope)
	return list, s.reject(ctx, sess, err)
}

func (s *Service) appointments(ctx context.Context, sess session.Session, scope Scope) ([]model.Appointment, error) {
	api := s.backend(sess.Token)

	if sess.IsDoctor() {
		doctorID := sess.DoctorID
		if doctorID.IsZero() {
			d, err := api.DoctorByUser(ctx, sess.UserID)
			if err != nil {
				return nil, err
			}
			doctorID = d.ID
		}
		return api.AppointmentsByDoctor(ctx, doctorID)
	}

	patientID := sess.PatientID
	if patientID.IsZero() {
		p, err := s.profile(ctx, sess)
		if err != nil {
			return nil, err
		}
		if p.ID.IsZero() {
			return []model.Appointment{}, nil
		}
		patientID = p.ID
	}

	switch scope {
	case ScopeUpcoming:
		return api.UpcomingAppointmentsByPatient(ctx, patientID)
	case ScopePast:
		return api.PastAppointmentsByPatient(ctx, patientID)
	default:
		return api.AppointmentsByPatient(ctx, patientID)
	}
}

// Refresh reloads the full appointment list after a change.
func (s *Service) Refresh(ctx context.Context, sess session.Session) ([]model.Appointment, error) {
	return s.Appointments(ctx, sess, ScopeAll)
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
