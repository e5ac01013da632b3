package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(uname, email, name, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	for _, r := range roles {
		if user.RolePriority(r) == 0 {
			return errors.Errorf("unknown role %q", r)
		}
	}

	now := core.NowFunc().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Username: uname, CreatedAt: now}
	}
	if email != "" {
		usr.Email = email
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	if len(roles) > 0 {
		usr.Roles = roles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s saved (id %s)\n", usr.Username, usr.ID)
	return nil
}
