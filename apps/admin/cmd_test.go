package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"golang.org/x/term"

	"github.com/lanes-app/lanes/core/user"
	"github.com/lanes-app/lanes/storage/database"
	"github.com/lanes-app/lanes/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	t.Cleanup(func() { readPasswordFunc = term.ReadPassword })
	return &commandLine{
		db:       env.DB,
		users:    env.Users,
		validate: env.Validate,
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	gooseRunFunc = func(_ context.Context, db *database.DB, command string, args ...string) error {
		if db != cli.db {
			return errors.New("unexpected database")
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = runMigrations })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "dive"}, wantErrStr: "\"dive\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "two"}, wantErrStr: "version must be a number (got 'two')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "one"}, wantErrStr: "version must be a number (got 'one')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "lesson_locations", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(args), tt)
		})
	}
	if len(ran) != 11 {
		t.Errorf("ran %d migration commands, want 11: %v", len(ran), ran)
	}
}

func Test_commandLine_createSuperuser(t *testing.T) {
	cli, env := setup(t)
	env.CreateSuperAdmin(t, "Root", "root@lanes.test")

	type extra struct {
		pwd     string
		confirm string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"createsuperuser"}, wantErr: errHelp},
		{name: "no email", args: []string{"createsuperuser", "-name", "Amani"}, wantErr: errHelp},
		{name: "no password", args: []string{"createsuperuser", "-name", "Amani", "-email", "amani@lanes.test"}, wantErr: errHelp},
		{
			name: "passwords mismatch", args: []string{"createsuperuser", "-name", "Amani", "-email", "amani@lanes.test"},
			extra: extra{pwd: testutil.Password, confirm: testutil.Password + "x"},
		},
		{
			name: "common password", args: []string{"createsuperuser", "-name", "Amani", "-email", "amani@lanes.test"},
			extra: extra{pwd: "password123", confirm: "password123"},
		},
		{
			name: "email taken", args: []string{"createsuperuser", "-name", "Amani", "-email", "ROOT@lanes.test"},
			extra: extra{pwd: testutil.Password, confirm: testutil.Password},
		},
		{
			name: "created", args: []string{"createsuperuser", "-name", "Amani", "-email", "amani@lanes.test"},
			extra: extra{pwd: testutil.Password, confirm: testutil.Password},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		prompts := 0
		readPasswordFunc = func(fd int) ([]byte, error) {
			prompts++
			if extra, ok := tt.extra.(extra); ok {
				if prompts == 1 {
					return []byte(extra.pwd), nil
				}
				return []byte(extra.confirm), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.name != "created" {
				if err == nil {
					t.Fatal("cli.run() error = nil, want an error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
			usr, err := env.Users.GetByEmail(context.Background(), "amani@lanes.test")
			if err != nil {
				t.Fatalf("GetByEmail() failed, %v", err)
			}
			if usr.Role != user.RoleSuperAdmin || !usr.IsActive {
				t.Errorf("created user = %s (active: %v), want an active super admin", usr.Role, usr.IsActive)
			}
			if err = usr.CheckPassword(testutil.Password); err != nil {
				t.Errorf("CheckPassword() failed, %v", err)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := env.CreateSuperAdmin(t, "Root", "root@lanes.test")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"swim"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "root@lanes.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "nobody@lanes.test"}, extra: extra{pwd: "Tide-pool-88"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "root@lanes.test"}, extra: extra{pwd: "Tide-pool-88"}},
		{name: "reset with another case", args: []string{"resetpassword", "-email", " Root@Lanes.test "}, extra: extra{pwd: "Reef-walk-99"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				checkErr(t, err, tt)
				return
			}
			refreshed, err := env.Users.GetByID(context.Background(), usr.ID)
			if err != nil {
				t.Fatalf("GetByID() failed, %v", err)
			}
			if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
				t.Error("failed to update new password")
			}
			if err = refreshed.CheckPassword(tt.extra.(extra).pwd); err != nil {
				t.Errorf("CheckPassword() failed, %v", err)
			}
		})
	}
}
