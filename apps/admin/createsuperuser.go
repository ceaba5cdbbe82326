package main

import (
	"context"
	"fmt"

	"github.com/lanes-app/lanes/core/user"
)

// createSuperuser creates a super admin, applying the password policy.
func (cli *commandLine) createSuperuser(ctx context.Context, name, email, pwd, confirm string) error {
	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
		Role:            user.RoleSuperAdmin,
	}
	if err := nu.Validate(ctx, cli.validate, cli.users); err != nil {
		return err
	}
	usr, err := cli.users.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Printf("Super admin %s created.\n", usr.Email)
	return nil
}
