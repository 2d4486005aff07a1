package medapi

import (
	"context"

	"github.com/jwalitptl/clinic-portal/internal/model"
)

func (c *Client) Patient(ctx context.Context, id model.ID) (*model.Patient, error) {
	payload, err := c.gw.Get(ctx, idPath("/patient", id))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Patient](payload, "patient", at("patient"), at("data.patient"))
}

func (c *Client) UpdatePatient(ctx context.Context, id model.ID, req model.UpdatePatientRequest) error {
	_, err := c.gw.Patch(ctx, idPath("/patient", id), req)
	return err
}

// PatientByUser resolves the patient record linked to a user account.
func (c *Client) PatientByUser(ctx context.Context, userID model.ID) (*model.Patient, error) {
	payload, err := c.gw.Get(ctx, idPath("/user/patient", userID))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Patient](payload, "patient", at("patient"), at("data.patient"))
}

func (c *Client) DoctorByUser(ctx context.Context, userID model.ID) (*model.Doctor, error) {
	payload, err := c.gw.Get(ctx, idPath("/user/doctor", userID))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Doctor](payload, "doctor", at("doctor"), at("data.doctor"))
}
