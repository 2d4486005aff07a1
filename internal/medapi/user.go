package medapi

import (
	"context"

	"github.com/jwalitptl/clinic-portal/internal/model"
)

func (c *Client) PendingUsers(ctx context.Context) ([]model.User, error) {
	payload, err := c.gw.Get(ctx, "/user/pending")
	if err != nil {
		return nil, err
	}
	return decodeList[model.User](payload, userEnvelope)
}

func (c *Client) ActivateUser(ctx context.Context, id model.ID) error {
	_, err := c.gw.Patch(ctx, idPath("/user", id, "activate"), nil)
	return err
}

func (c *Client) DeleteUser(ctx context.Context, id model.ID) error {
	_, err := c.gw.Delete(ctx, idPath("/user", id))
	return err
}

func (c *Client) RegisterPatient(ctx context.Context, req model.RegisterPatientRequest) error {
	_, err := c.gw.Post(ctx, "/user/register", req)
	return err
}

func (c *Client) RegisterDoctor(ctx context.Context, req model.RegisterDoctorRequest) error {
	_, err := c.gw.Post(ctx, "/user/register/doctor", req)
	return err
}

func (c *Client) Notifications(ctx context.Context, userID model.ID) ([]model.Notification, error) {
	payload, err := c.gw.Get(ctx, idPath("/notification", userID))
	if err != nil {
		return nil, err
	}
	return decodeList[model.Notification](payload, notificationEnvelope)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id model.ID) error {
	_, err := c.gw.Post(ctx, idPath("/notification", id, "read"), nil)
	return err
}
