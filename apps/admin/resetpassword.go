package main

import (
	"context"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = user.NowFunc()
	_, err = cli.usrRepo.UpdatePassword(ctx, usr)
	return err
}
