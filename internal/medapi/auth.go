package medapi

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	payload, err := c.gw.Post(ctx, "/auth/login", model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var res model.LoginResult
	if payload != nil {
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, unexpectedShape(err)
		}
	}
	if res.Token == "" {
		return nil, errors.NewIncomplete("login response carried no token", nil)
	}
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.gw.Post(ctx, "/auth/logout", nil)
	return err
}

// Me returns the user behind the current token.
func (c *Client) Me(ctx context.Context) (*model.AuthUser, error) {
	payload, err := c.gw.Get(ctx, "/auth/me")
	if err != nil {
		return nil, err
	}
	return decodeObject[model.AuthUser](payload, "user", at("user"), at("data.user"))
}
