package model

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusInProgress AppointmentStatus = "in-progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no-show"
)

type VisitType string

const (
	VisitConsultation VisitType = "consultation"
	VisitFollowUp     VisitType = "follow-up"
	VisitProcedure    VisitType = "procedure"
	VisitEmergency    VisitType = "emergency"
)

// ParseVisitType defaults an empty value to a consultation.
func ParseVisitType(s string) (VisitType, bool) {
	switch VisitType(s) {
	case "":
		return VisitConsultation, true
	case VisitConsultation, VisitFollowUp, VisitProcedure, VisitEmergency:
		return VisitType(s), true
	default:
		return "", false
	}
}

type Appointment struct {
	ID              ID                `json:"id"`
	PatientID       ID                `json:"patient_id"`
	DoctorID        ID                `json:"doctor_id"`
	AvailabilityID  ID                `json:"availability_id,omitempty"`
	AppointmentDate string            `json:"appointment_date"`
	Status          AppointmentStatus `json:"status"`
	Reason          string            `json:"reason,omitempty"`
	Type            VisitType         `json:"type,omitempty"`
	CreatedAt       string            `json:"created_at,omitempty"`
}

type CreateAppointmentRequest struct {
	DoctorID       ID        `json:"doctor_id"`
	AvailabilityID ID        `json:"availability_id"`
	Reason         string    `json:"reason,omitempty"`
	Type           VisitType `json:"type,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	PatientID      ID        `json:"patient_id,omitempty"`
}
