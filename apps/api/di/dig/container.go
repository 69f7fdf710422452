package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/activity"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	"github.com/ahmedramy514/khadamli-darasi/core/presence"
	emailsvc "github.com/ahmedramy514/khadamli-darasi/services/email"
	logsvc "github.com/ahmedramy514/khadamli-darasi/services/logger"
	redisstore "github.com/ahmedramy514/khadamli-darasi/storage/cache/redis"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	sqlxrepos "github.com/ahmedramy514/khadamli-darasi/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage holds the repositories of the configured engine. DB is nil for the memory engine.
	Storage struct {
		DB            *sqlx.DB
		Accounts      account.Repository
		Activity      activity.Repository
		Notifications notification.Repository
		Messages      message.Repository
	}

	ServerParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		Accounts      *account.Service
		Activity      *activity.Service
		Notifications *notification.Service
		Messages      *message.Service
		Presence      *presence.Registry
	}
)

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) *Storage {
	if conf.Database.Engine == database.EngineMemory {
		db := dummydb.Open()
		return &Storage{
			Accounts:      dummydb.NewAccountRepository(db),
			Activity:      dummydb.NewActivityRepository(db),
			Notifications: dummydb.NewNotificationRepository(db),
			Messages:      dummydb.NewMessageRepository(db),
		}
	}

	db, err := database.Setup(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return &Storage{
		DB:            db,
		Accounts:      sqlxrepos.NewAccountRepository(db),
		Activity:      sqlxrepos.NewActivityRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
		Messages:      sqlxrepos.NewMessageRepository(db),
	}
}

// newScoreboard returns nil when redis is not configured or unreachable; leaderboards are then read from storage.
func newScoreboard(conf *core.Config, loggerParam DBLoggerParam) account.Scoreboard {
	if conf.Redis.Address == "" {
		return nil
	}
	client, err := redisstore.NewClient(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Warn(fmt.Sprintf("leaderboard cache disabled: %v", err), err)
		return nil
	}
	return redisstore.NewScoreboard(client, conf.AppName)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Accounts:      p.Accounts,
		Activity:      p.Activity,
		Notifications: p.Notifications,
		Messages:      p.Messages,
		Presence:      p.Presence,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(func(s *Storage) account.Repository { return s.Accounts }))
	must(c.Provide(func(s *Storage) activity.Repository { return s.Activity }))
	must(c.Provide(func(s *Storage) notification.Repository { return s.Notifications }))
	must(c.Provide(func(s *Storage) message.Repository { return s.Messages }))
	must(c.Provide(newScoreboard))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(presence.NewRegistry))
	must(c.Provide(func(r *presence.Registry) notification.Publisher { return r }))
	must(c.Provide(account.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(func(conf *core.Config) activity.RatingPolicy {
		return activity.ParseRatingPolicy(conf.Ledger.RatingPolicy)
	}))
	must(c.Provide(func(svc *account.Service) activity.Ledger { return svc }))
	must(c.Provide(func(svc *account.Service) message.Accounts { return svc }))
	must(c.Provide(func(svc *notification.Service) activity.Notifier { return svc }))
	must(c.Provide(func(svc *notification.Service) message.Notifier { return svc }))
	must(c.Provide(activity.NewService))
	must(c.Provide(message.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
