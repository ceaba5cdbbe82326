package main

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/lanes-app/lanes/assets"
	"github.com/lanes-app/lanes/storage/database"
)

var gooseRunFunc = runMigrations // mockable

// runMigrations runs the embedded migrations. `create` and `fix` work on the migration files of the source tree.
func runMigrations(ctx context.Context, db *database.DB, command string, args ...string) error {
	if command != "create" && command != "fix" {
		return database.RunMigrations(ctx, db, command, args...)
	}
	dir := filepath.Join("assets", assets.MigrationsDir)
	if err := goose.RunContext(ctx, command, nil, dir, args...); err != nil {
		return errors.Wrap(err, "creating migration")
	}
	return nil
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
