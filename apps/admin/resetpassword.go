package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/user"
)

// resetPassword sets a new password on the staff account matching login (username or email).
// A deactivated account stays locked unless activate is set, e.g. for staff back for a new school year.
func (cli *commandLine) resetPassword(login, pwd string, activate bool) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
	if err != nil {
		return errors.Wrap(err, "finding account")
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if activate {
		usr.IsActive = true
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving account")
	}

	state := "active"
	if !usr.IsActive {
		state = "still deactivated, use -activate to unlock it"
	}
	fmt.Fprintf(cli.out, "password of %s reset, account %s\n", usr.Username, state)
	return nil
}
