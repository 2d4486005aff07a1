package prescription

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type Backend interface {
	CreatePrescription(ctx context.Context, req model.CreatePrescriptionRequest) error
	Prescription(ctx context.Context, id model.ID) (*model.Prescription, error)
	PrescriptionsByPatient(ctx context.Context, patientID model.ID) ([]model.Prescription, error)
	PrescriptionsByDoctor(ctx context.Context, doctorID model.ID) ([]model.Prescription, error)
	DeletePrescription(ctx context.Context, id model.ID) error
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

// Create issues a prescription on behalf of the signed-in doctor.
func (s *Service) Create(ctx context.Context, sess session.Session, req model.CreatePrescriptionRequest) error {
	if !sess.IsDoctor() {
		return errors.Forbidden("only doctors can issue prescriptions")
	}
	if req.DoctorID.IsZero() {
		req.DoctorID = sess.DoctorID
	}
	if req.DoctorID.IsZero() {
		return errors.NewInvalidState("no doctor record is linked to this account")
	}
	if err := s.backend(sess.Token).CreatePrescription(ctx, req); err != nil {
		return s.reject(ctx, sess, err)
	}
	s.logger.Info().
		Str("patient_id", req.PatientID.String()).
		Str("appointment_id", req.AppointmentID.String()).
		Int("items", len(req.Items)).
		Msg("prescription issued")
	return nil
}

// List returns the prescriptions a doctor issued or a patient received.
func (s *Service) List(ctx context.Context, sess session.Session) ([]model.Prescription, error) {
	api := s.backend(sess.Token)
	var (
		list []model.Prescription
		err  error
	)
	switch {
	case sess.IsDoctor() && !sess.DoctorID.IsZero():
		list, err = api.PrescriptionsByDoctor(ctx, sess.DoctorID)
	case !sess.PatientID.IsZero():
		list, err = api.PrescriptionsByPatient(ctx, sess.PatientID)
	default:
		return []model.Prescription{}, nil
	}
	return list, s.reject(ctx, sess, err)
}

func (s *Service) Get(ctx context.Context, sess session.Session, id model.ID) (*model.Prescription, error) {
	p, err := s.backend(sess.Token).Prescription(ctx, id)
	return p, s.reject(ctx, sess, err)
}

func (s *Service) Delete(ctx context.Context, sess session.Session, id model.ID) error {
	if !sess.IsDoctor() && !sess.IsAdmin() {
		return errors.Forbidden("only doctors can delete prescriptions")
	}
	return s.reject(ctx, sess, s.backend(sess.Token).DeletePrescription(ctx, id))
}

func (s *Service) reject(ctx context.Context, sess session.Session, err error) error {
	return session.Reject(ctx, s.sessions, sess, err, s.logger)
}
