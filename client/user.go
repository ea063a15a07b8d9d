package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mrembo/urembo/core/user"
)

// Signup registers a new standard account.
func (c *Client) Signup(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	if err := c.postJSON(ctx, "/api/auth/signup", nu, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// Users lists every account (admin only).
func (c *Client) Users(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := c.getJSON(ctx, "/api/user/all", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserActiveStatus toggles an account's activation (admin only).
func (c *Client) SetUserActiveStatus(ctx context.Context, id int, active bool) (user.User, error) {
	path := fmt.Sprintf("/api/user/activate-status/%d?status=%t", id, active)
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, "")
	if err != nil {
		return user.User{}, err
	}
	var usr user.User
	if err := c.do(req, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}
