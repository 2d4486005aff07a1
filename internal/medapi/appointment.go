package medapi

import (
	"context"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

type createAppointmentResponse struct {
	AppointmentID model.ID `json:"appointment_id"`
	ID            model.ID `json:"id"`
	Appointment   *struct {
		ID model.ID `json:"id"`
	} `json:"appointment"`
}

// CreateAppointment returns the new appointment id. A 2xx answer without an
// id is reported as incomplete.
func (c *Client) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (model.ID, error) {
	payload, err := c.gw.Post(ctx, "/appointment/", req)
	if err != nil {
		return "", err
	}
	res, err := decodeObject[createAppointmentResponse](payload, "appointment", at("data"))
	if err != nil {
		return "", err
	}
	switch {
	case !res.AppointmentID.IsZero():
		return res.AppointmentID, nil
	case res.Appointment != nil && !res.Appointment.ID.IsZero():
		return res.Appointment.ID, nil
	case !res.ID.IsZero():
		return res.ID, nil
	default:
		return "", errors.NewIncomplete("appointment id missing from response", nil)
	}
}

func (c *Client) Appointment(ctx context.Context, id model.ID) (*model.Appointment, error) {
	payload, err := c.gw.Get(ctx, idPath("/appointment", id))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Appointment](payload, "appointment", at("appointment"), at("data.appointment"))
}

func (c *Client) AppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error) {
	return c.appointments(ctx, idPath("/appointment/patient", patientID))
}

func (c *Client) UpcomingAppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error) {
	return c.appointments(ctx, idPath("/appointment/patient", patientID, "upcoming"))
}

func (c *Client) PastAppointmentsByPatient(ctx context.Context, patientID model.ID) ([]model.Appointment, error) {
	return c.appointments(ctx, idPath("/appointment/patient", patientID, "past"))
}

func (c *Client) AppointmentsByDoctor(ctx context.Context, doctorID model.ID) ([]model.Appointment, error) {
	return c.appointments(ctx, idPath("/appointment/doctor", doctorID))
}

func (c *Client) CompleteAppointment(ctx context.Context, id model.ID) error {
	_, err := c.gw.Patch(ctx, idPath("/appointment", id, "complete"), nil)
	return err
}

func (c *Client) CancelAppointment(ctx context.Context, id model.ID) error {
	_, err := c.gw.Patch(ctx, idPath("/appointment", id, "cancel"), nil)
	return err
}

func (c *Client) DeleteAppointment(ctx context.Context, id model.ID) error {
	_, err := c.gw.Delete(ctx, idPath("/appointment", id))
	return err
}

func (c *Client) appointments(ctx context.Context, path string) ([]model.Appointment, error) {
	payload, err := c.gw.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Appointment](payload, appointmentEnvelope)
}
