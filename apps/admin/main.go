package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
	emailsvc "github.com/lanes-app/lanes/services/email"
	logsvc "github.com/lanes-app/lanes/services/logger"
	"github.com/lanes-app/lanes/storage/database"
	"github.com/lanes-app/lanes/storage/database/gormrepos"
)

func main() {
	conf := core.NewConfig()
	rootLogger := logsvc.NewRollbarLogger(conf)
	rootLogger.Enable(!conf.Debug)
	logger := rootLogger.Named("ADMIN")

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf, rootLogger.Named("DB"))
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.StatusCheck(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{
		db:       db,
		users:    user.NewService(gormrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf),
		validate: validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	rootLogger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
