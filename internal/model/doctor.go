package model

import "strings"

type Doctor struct {
	ID             ID     `json:"id"`
	UserID         ID     `json:"user_id,omitempty"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
}

func (d Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type UpdateDoctorRequest struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	LicenseNumber  *string `json:"license_number,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
}

type AvailabilitySlot struct {
	ID          ID     `json:"id"`
	DoctorID    ID     `json:"doctor_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable Truth  `json:"is_available"`
}

// AvailabilityRequest is the doctor-facing create/update payload. Field names
// follow the backend's availability endpoint.
type AvailabilityRequest struct {
	DoctorID    ID     `json:"doctor_Id,omitempty"`
	StartTime   string `json:"startTime,omitempty" binding:"required"`
	EndTime     string `json:"endTime,omitempty" binding:"required"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}
