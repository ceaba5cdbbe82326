package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *database.DB
	users    *user.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a database migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  createsuperuser -name NAME -email EMAIL - create a super admin")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	createSuperuserCmd := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	createSuperuserName := createSuperuserCmd.String("name", "", "The super admin's name.")
	createSuperuserEmail := createSuperuserCmd.String("email", "", "The super admin's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "createsuperuser":
		if err := createSuperuserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperuserName == "" || *createSuperuserEmail == "" {
			createSuperuserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			createSuperuserCmd.Usage()
			return errHelp
		}
		confirm, err := promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.createSuperuser(ctx, *createSuperuserName, *createSuperuserEmail, pwd, confirm)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}
