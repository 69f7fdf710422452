package main

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	appfs "github.com/ahmedramy514/khadamli-darasi/fs"
	emailsvc "github.com/ahmedramy514/khadamli-darasi/services/email"
	logsvc "github.com/ahmedramy514/khadamli-darasi/services/logger"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	sqlxrepos "github.com/ahmedramy514/khadamli-darasi/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	cli := commandLine{conf: conf, logger: logger}

	var (
		accRepo   account.Repository
		notifRepo notification.Repository
	)
	if conf.Database.Engine == database.EngineMemory {
		db := dummydb.Open()
		accRepo = dummydb.NewAccountRepository(db)
		notifRepo = dummydb.NewNotificationRepository(db)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(errors.Wrap(err, "creating database").Error(), err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(errors.Wrap(err, "opening database").Error(), err)
		}
		defer func() { _ = db.Close() }()
		cli.db = db
		accRepo = sqlxrepos.NewAccountRepository(db)
		notifRepo = sqlxrepos.NewNotificationRepository(db)
	}

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug, logger)

	var mailer core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailer = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailer = emailsvc.NewSendgridService(conf, logger)
	}

	cli.accounts = account.NewService(accRepo, nil, logger)
	cli.notifications = notification.NewService(notifRepo, nil, logger)
	cli.mailer = mailer

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
