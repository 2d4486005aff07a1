package model

type Prescription struct {
	ID            ID                 `json:"id"`
	PatientID     ID                 `json:"patient_id"`
	DoctorID      ID                 `json:"doctor_id"`
	AppointmentID ID                 `json:"appointment_id,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Items         []PrescriptionItem `json:"prescription_items"`
	CreatedAt     string             `json:"created_at,omitempty"`
}

type PrescriptionItem struct {
	MedicationName string `json:"medication_name" binding:"required,notblank"`
	Dosage         string `json:"dosage" binding:"required,notblank"`
	Instructions   string `json:"instructions"`
}

type CreatePrescriptionRequest struct {
	PatientID     ID                 `json:"patient_id" binding:"required"`
	DoctorID      ID                 `json:"doctor_id"`
	AppointmentID ID                 `json:"appointment_id" binding:"required"`
	Notes         string             `json:"notes"`
	Items         []PrescriptionItem `json:"prescription_items" binding:"required,min=1,dive"`
}
