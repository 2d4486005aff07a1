package medapi

import (
	"context"
	"net/url"

	"cloud.google.com/go/civil"

	"github.com/jwalitptl/clinic-portal/internal/model"
)

const specializationsKey = "specializations"

func (c *Client) Specializations(ctx context.Context) ([]string, error) {
	if v, ok := c.cached(specializationsKey); ok {
		return append([]string(nil), v.([]string)...), nil
	}
	payload, err := c.gw.Get(ctx, "/doctor/specializations")
	if err != nil {
		return nil, err
	}
	specs, err := decodeList[string](payload, specializationEnvelope)
	if err != nil {
		return nil, err
	}
	c.store(specializationsKey, specs)
	return specs, nil
}

func (c *Client) DoctorsBySpecialization(ctx context.Context, specialization string) ([]model.Doctor, error) {
	key := "doctors:" + specialization
	if v, ok := c.cached(key); ok {
		return append([]model.Doctor(nil), v.([]model.Doctor)...), nil
	}
	payload, err := c.gw.Get(ctx, "/doctor/specialization"+pathf(specialization))
	if err != nil {
		return nil, err
	}
	doctors, err := decodeList[model.Doctor](payload, doctorEnvelope)
	if err != nil {
		return nil, err
	}
	c.store(key, doctors)
	return doctors, nil
}

func (c *Client) Doctor(ctx context.Context, id model.ID) (*model.Doctor, error) {
	payload, err := c.gw.Get(ctx, idPath("/doctor", id))
	if err != nil {
		return nil, err
	}
	return decodeObject[model.Doctor](payload, "doctor", at("doctor"), at("data.doctor"))
}

func (c *Client) UpdateDoctor(ctx context.Context, id model.ID, req model.UpdateDoctorRequest) error {
	_, err := c.gw.Patch(ctx, idPath("/doctor", id), req)
	if err == nil {
		c.invalidateDirectory()
	}
	return err
}

// DoctorAvailability lists every slot of one doctor. Never cached.
func (c *Client) DoctorAvailability(ctx context.Context, doctorID model.ID) ([]model.AvailabilitySlot, error) {
	payload, err := c.gw.Get(ctx, idPath("/availability/doctor", doctorID))
	if err != nil {
		return nil, err
	}
	return decodeList[model.AvailabilitySlot](payload, availabilityEnvelope)
}

// SearchAvailability asks the backend for all slots of a specialization on a date.
func (c *Client) SearchAvailability(ctx context.Context, specialization string, date civil.Date) ([]model.AvailabilitySlot, error) {
	q := url.Values{}
	q.Set("specialization", specialization)
	q.Set("date", date.String())
	payload, err := c.gw.Get(ctx, "/availability?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeList[model.AvailabilitySlot](payload, availabilityEnvelope)
}

func (c *Client) CreateAvailability(ctx context.Context, req model.AvailabilityRequest) error {
	_, err := c.gw.Post(ctx, "/availability", req)
	return err
}

func (c *Client) UpdateAvailability(ctx context.Context, id model.ID, req model.AvailabilityRequest) error {
	_, err := c.gw.Patch(ctx, idPath("/availability", id), req)
	return err
}

func (c *Client) DeleteAvailability(ctx context.Context, id model.ID) error {
	_, err := c.gw.Delete(ctx, idPath("/availability", id))
	return err
}

func (c *Client) cached(key string) (interface{}, bool) {
	if c.directory == nil {
		return nil, false
	}
	return c.directory.Get(key)
}

func (c *Client) store(key string, v interface{}) {
	if c.directory == nil {
		return
	}
	c.directory.SetDefault(key, v)
}

func (c *Client) invalidateDirectory() {
	if c.directory == nil {
		return
	}
	c.directory.Flush()
	c.logger.Debug().Msg("directory cache flushed")
}
