// Package assets embeds the files shipped inside the binaries:
// SQL migrations, email templates and the common passwords list.
package assets

import (
	"embed"
	"io/fs"
)

var (
	//go:embed migrations/*.sql
	Migrations embed.FS

	//go:embed all:templates/email
	templates embed.FS

	//go:embed common-passwords.txt.gz
	CommonPasswordsGz []byte

	EmailTemplates = mustSub(templates, "templates/email")
)

const MigrationsDir = "migrations"

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
