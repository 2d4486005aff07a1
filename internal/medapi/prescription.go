package medapi

import (
	"context"

	"github.com/jwalitptl/clinic-portal/internal/model"
)

func (c *Client) CreatePrescription(ctx context.Context, req model.CreatePrescriptionRequest) error {
	_, err := c.gw.Post(ctx, "/prescription/create", req)
	return err
}

func (c *Client) Prescription(ctx context.Context, id model.ID) (*model.Prescription, error) {
	payload, err := c.gw.Get(ctx, idPath("/prescription", id))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Prescription](payload, "prescription", at("prescription"), at("data.prescription"))
}

func (c *Client) PrescriptionsByPatient(ctx context.Context, patientID model.ID) ([]model.Prescription, error) {
	return c.prescriptions(ctx, idPath("/prescription/patient", patientID))
}

func (c *Client) PrescriptionsByDoctor(ctx context.Context, doctorID model.ID) ([]model.Prescription, error) {
	return c.prescriptions(ctx, idPath("/prescription/doctor", doctorID))
}

func (c *Client) DeletePrescription(ctx context.Context, id model.ID) error {
	_, err := c.gw.Delete(ctx, idPath("/prescription", id))
	return err
}

func (c *Client) prescriptions(ctx context.Context, path string) ([]model.Prescription, error) {
	payload, err := c.gw.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Prescription](payload, prescriptionEnvelope)
}
