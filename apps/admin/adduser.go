package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/user"
)

// addUser creates a user. An existing account gets its password reset and
// is reactivated instead; its role is left untouched.
func (cli *commandLine) addUser(uname, first, last, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}

		role := user.RoleUser
		if isAdmin {
			role = user.RoleAdmin
		}
		now := user.NowFunc()
		usr = user.User{
			Username:  uname,
			FirstName: core.CleanString(first),
			LastName:  core.CleanString(last),
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = user.NowFunc()
	if _, err = cli.usrRepo.UpdatePassword(ctx, usr); err != nil {
		return err
	}
	active := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
	return err
}
