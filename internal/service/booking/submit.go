package booking

import (
	"context"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

var (
	missingPatientPattern = regexp.MustCompile(`(?i)patient[_\s-]?id|patientId|patient id|missing patient`)
	slotTakenPattern      = regexp.MustCompile(`(?i)slot.*(taken|booked|unavailable|not available)|already (taken|booked|reserved)|no longer available`)
)

// Backend is the set of backend calls one booking needs, already scoped to
// the caller's token.
type Backend interface {
	CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (model.ID, error)
	Me(ctx context.Context) (*model.AuthUser, error)
	PatientByUser(ctx context.Context, userID model.ID) (*model.Patient, error)
}

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeSubmitted    Outcome = "submitted"
	OutcomeSlotTaken    Outcome = "slot_taken"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeFailed       Outcome = "failed"
)

type Submitter struct {
	sendPatientID bool
	metrics       *metrics.Metrics
	logger        *zerolog.Logger
}

func NewSubmitter(sendPatientID bool, m *metrics.Metrics, logger *zerolog.Logger) *Submitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Submitter{sendPatientID: sendPatientID, metrics: m, logger: logger}
}

// Submit creates the appointment for a confirmed wizard and returns the next
// state. On success that is Submitted; when the slot was taken it is slot
// selection for the same date; otherwise the wizard stays in Confirming.
func (s *Submitter) Submit(ctx context.Context, api Backend, sess session.Session, c Confirming) (State, Outcome, error) {
	var patientID model.ID
	if s.sendPatientID {
		patientID = sess.PatientID
	}

	id, err := api.CreateAppointment(ctx, c.Request(patientID))
	if err != nil && isMissingPatient(err) {
		id, err = s.repair(ctx, api, c, err)
	}

	outcome := classify(err)
	s.metrics.BookingOutcome(string(outcome))

	log := s.logger.With().
		Str("session_id", sess.ID).
		Str("doctor_id", c.Selection.Doctor.DoctorID.String()).
		Str("availability_id", c.Selection.Doctor.AvailabilityID.String()).
		Str("outcome", string(outcome)).
		Logger()

	switch outcome {
	case OutcomeSubmitted:
		log.Info().Str("appointment_id", id.String()).Msg("appointment created")
		return c.Submitted(id), outcome, nil
	case OutcomeSlotTaken:
		log.Info().Err(err).Msg("slot no longer available")
		conflict := &errors.AppError{
			Code:    errors.ErrConflict,
			Message: errors.MessageOf(err),
			Err:     err,
		}
		if appErr, ok := errors.As(err); ok {
			conflict.Status = appErr.Status
			conflict.Payload = appErr.Payload
		}
		return c.SlotTaken(), outcome, conflict
	default:
		log.Warn().Err(err).Msg("appointment submission failed")
		return c, outcome, err
	}
}

// repair looks up the caller's patient record and retries once with it.
// Any failure along the way returns the original error, except a rejected
// token which is always reported as such.
func (s *Submitter) repair(ctx context.Context, api Backend, c Confirming, original error) (model.ID, error) {
	linkage := asLinkage(original)

	me, err := api.Me(ctx)
	if err != nil || me.ID.IsZero() {
		return "", s.repairFailed("lookup_failed", err, linkage)
	}
	patient, err := api.PatientByUser(ctx, me.ID)
	if err != nil || patient.ID.IsZero() {
		return "", s.repairFailed("lookup_failed", err, linkage)
	}

	s.logger.Debug().Str("patient_id", patient.ID.String()).Msg("retrying appointment with resolved patient")
	id, err := api.CreateAppointment(ctx, c.Request(patient.ID))
	if err != nil {
		return "", s.repairFailed("retry_failed", err, linkage)
	}
	s.metrics.PatientLinkRepair("recovered")
	return id, nil
}

func (s *Submitter) repairFailed(result string, cause, original error) error {
	s.metrics.PatientLinkRepair(result)
	if cause != nil && errors.IsUnauthorized(cause) {
		return cause
	}
	return original
}

func isMissingPatient(err error) bool {
	appErr, ok := errors.As(err)
	if !ok || appErr.Status != http.StatusBadRequest {
		return false
	}
	return missingPatientPattern.MatchString(appErr.Message)
}

func isSlotTaken(err error) bool {
	appErr, ok := errors.As(err)
	if !ok {
		return false
	}
	if appErr.Code == errors.ErrConflict {
		return true
	}
	return appErr.Status == http.StatusBadRequest && slotTakenPattern.MatchString(appErr.Message)
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSubmitted
	case errors.IsUnauthorized(err):
		return OutcomeUnauthorized
	case isSlotTaken(err):
		return OutcomeSlotTaken
	default:
		return OutcomeFailed
	}
}

// asLinkage keeps the backend's message and payload but marks the error as a
// missing patient link.
func asLinkage(err error) error {
	appErr, ok := errors.As(err)
	if !ok {
		return err
	}
	cp := *appErr
	cp.Code = errors.ErrPatientLinkage
	return &cp
}
