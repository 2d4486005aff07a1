package booking

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type Step string

const (
	StepSpecialization Step = "choosing_specialization"
	StepSlot           Step = "choosing_slot"
	StepDetails        Step = "entering_details"
	StepConfirm        Step = "confirming"
	StepSubmitted      Step = "submitted"
)

// State is one step of the booking wizard. Each variant carries only the data
// valid at that step.
type State interface {
	Step() Step
}

// Selection is the slot the patient settled on.
type Selection struct {
	Specialization string                  `json:"specialization"`
	Date           civil.Date              `json:"date"`
	Time           string                  `json:"time"`
	Doctor         availability.DoctorSlot `json:"doctor"`
}

type ChoosingSpecialization struct {
	Preselected string `json:"preselected,omitempty"`
}

type ChoosingDateTimeAndDoctor struct {
	Specialization string              `json:"specialization"`
	Date           *civil.Date         `json:"date,omitempty"`
	Time           string              `json:"time,omitempty"`
	Slots          *availability.Table `json:"slots,omitempty"`
}

type EnteringDetails struct {
	Selection Selection           `json:"selection"`
	Slots     *availability.Table `json:"slots,omitempty"`
}

type Confirming struct {
	Selection Selection           `json:"selection"`
	Type      model.VisitType     `json:"type"`
	Reason    string              `json:"reason"`
	Slots     *availability.Table `json:"slots,omitempty"`
}

type Submitted struct {
	Selection     Selection       `json:"selection"`
	Type          model.VisitType `json:"type"`
	Reason        string          `json:"reason"`
	AppointmentID model.ID        `json:"appointment_id"`
}

func (ChoosingSpecialization) Step() Step    { return StepSpecialization }
func (ChoosingDateTimeAndDoctor) Step() Step { return StepSlot }
func (EnteringDetails) Step() Step           { return StepDetails }
func (Confirming) Step() Step                { return StepConfirm }
func (Submitted) Step() Step                 { return StepSubmitted }

func (s ChoosingSpecialization) Choose(specialization string) (ChoosingDateTimeAndDoctor, error) {
	specialization = strings.TrimSpace(specialization)
	if specialization == "" {
		return ChoosingDateTimeAndDoctor{}, errors.NewBadRequest("specialization is required", nil)
	}
	return ChoosingDateTimeAndDoctor{Specialization: specialization}, nil
}

// PickDate sets the date and drops the time and any slots loaded for another date.
func (s ChoosingDateTimeAndDoctor) PickDate(date civil.Date) ChoosingDateTimeAndDoctor {
	return ChoosingDateTimeAndDoctor{Specialization: s.Specialization, Date: &date}
}

// ApplySlots installs a table only if it answers the current selection.
// A table for another specialization or date is stale and ignored.
func (s ChoosingDateTimeAndDoctor) ApplySlots(table *availability.Table) (ChoosingDateTimeAndDoctor, bool) {
	if s.Date == nil || !table.Matches(s.Specialization, *s.Date) {
		return s, false
	}
	s.Slots = table
	if s.Time != "" && len(table.Doctors(s.Time)) == 0 {
		s.Time = ""
	}
	return s, true
}

// Select requires an explicit doctor even when only one is offered.
func (s ChoosingDateTimeAndDoctor) Select(date civil.Date, at string, doctorID model.ID) (EnteringDetails, error) {
	if s.Date == nil || *s.Date != date {
		return EnteringDetails{}, errors.NewInvalidState("pick the date before choosing a time")
	}
	if s.Slots == nil || !s.Slots.Matches(s.Specialization, date) {
		return EnteringDetails{}, errors.NewInvalidState("slots for the selected date are not loaded")
	}
	if len(s.Slots.Doctors(at)) == 0 {
		return EnteringDetails{}, errors.NewBadRequest("no doctor is available at "+at, nil)
	}
	if doctorID.IsZero() {
		return EnteringDetails{}, errors.NewBadRequest("choose a doctor", nil)
	}
	doctor, ok := s.Slots.Lookup(at, doctorID)
	if !ok {
		return EnteringDetails{}, errors.NewBadRequest("the chosen doctor is not available at "+at, nil)
	}
	return EnteringDetails{
		Selection: Selection{
			Specialization: s.Specialization,
			Date:           date,
			Time:           at,
			Doctor:         doctor,
		},
		Slots: s.Slots,
	}, nil
}

// Back keeps the specialization as the preselected value.
func (s ChoosingDateTimeAndDoctor) Back() ChoosingSpecialization {
	return ChoosingSpecialization{Preselected: s.Specialization}
}

// Describe rejects a blank reason without touching the network.
func (s EnteringDetails) Describe(visitType, reason string) (Confirming, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Confirming{}, errors.NewBadRequest("reason for the visit is required", nil)
	}
	vt, ok := model.ParseVisitType(visitType)
	if !ok {
		return Confirming{}, errors.NewBadRequest("unknown visit type "+visitType, nil)
	}
	return Confirming{Selection: s.Selection, Type: vt, Reason: reason, Slots: s.Slots}, nil
}

// Back keeps the date and time and drops the doctor.
func (s EnteringDetails) Back() ChoosingDateTimeAndDoctor {
	date := s.Selection.Date
	return ChoosingDateTimeAndDoctor{
		Specialization: s.Selection.Specialization,
		Date:           &date,
		Time:           s.Selection.Time,
		Slots:          s.Slots,
	}
}

// Back drops the reason and visit type.
func (s Confirming) Back() EnteringDetails {
	return EnteringDetails{Selection: s.Selection, Slots: s.Slots}
}

// SlotTaken returns to slot selection for the same date with nothing else kept.
func (s Confirming) SlotTaken() ChoosingDateTimeAndDoctor {
	date := s.Selection.Date
	return ChoosingDateTimeAndDoctor{Specialization: s.Selection.Specialization, Date: &date}
}

func (s Confirming) Request(patientID model.ID) model.CreateAppointmentRequest {
	return model.CreateAppointmentRequest{
		DoctorID:       s.Selection.Doctor.DoctorID,
		AvailabilityID: s.Selection.Doctor.AvailabilityID,
		Reason:         s.Reason,
		Type:           s.Type,
		Specialization: s.Selection.Specialization,
		PatientID:      patientID,
	}
}

func (s Confirming) Submitted(id model.ID) Submitted {
	return Submitted{Selection: s.Selection, Type: s.Type, Reason: s.Reason, AppointmentID: id}
}

// Back moves one step back. The first and last steps have no previous step.
func Back(s State) (State, error) {
	switch st := s.(type) {
	case ChoosingDateTimeAndDoctor:
		return st.Back(), nil
	case EnteringDetails:
		return st.Back(), nil
	case Confirming:
		return st.Back(), nil
	default:
		return s, errors.NewInvalidState("cannot go back from " + string(s.Step()))
	}
}
