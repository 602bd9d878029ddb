package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/user"
	"github.com/myhockeyrecruiting/mhr/fs/appfs"
	emailsvc "github.com/myhockeyrecruiting/mhr/services/email"
	logsvc "github.com/myhockeyrecruiting/mhr/services/logger"
	smssvc "github.com/myhockeyrecruiting/mhr/services/sms"
	"github.com/myhockeyrecruiting/mhr/services/zapier"
	"github.com/myhockeyrecruiting/mhr/storage/database"
	pgrepos "github.com/myhockeyrecruiting/mhr/storage/database/postgres"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)

	usrSvc := user.NewService(
		conf,
		pgrepos.NewUserRepository(db),
		core.NewTransactor(db),
		emailsvc.NewConsoleService(conf, logger),
		smssvc.NewConsoleService(logger),
		zapier.NewNotifier(conf.ZapierWebhookURL, logger),
	)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrSvc:    usrSvc,
		lookupSvc: lookup.NewService(pgrepos.NewLookupRepository(db)),
		validate:  validate,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		logger.Error(fmt.Sprintf("error: %v", err), err)
		os.Exit(1)
	}
}
