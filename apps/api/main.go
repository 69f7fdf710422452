package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	dig_container "github.com/ahmedramy514/khadamli-darasi/apps/api/di/dig"
	echoapi "github.com/ahmedramy514/khadamli-darasi/apps/api/echo"
	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	appfs "github.com/ahmedramy514/khadamli-darasi/fs"
)

func main() {
	c := dig_container.New(core.NewConfig)

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		storage *dig_container.Storage,
		validate *validator.Validate,
		translator ut.Translator,
		accounts *account.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.InitValidators(validate, translator)
		core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug, apiLogger)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := storage.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if n, err := accounts.RebuildScoreboard(ctx); err != nil {
			apiLogger.Warn(fmt.Sprintf("rebuilding scoreboard: %v", err), err)
		} else if n > 0 {
			apiLogger.Info(fmt.Sprintf("scoreboard rebuilt for %d accounts", n))
		}

		if conf.Ledger.AutoWeeklyReset {
			go accounts.RunWeeklyResets(ctx)
		}

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancelShutdown()

			// asking listener to shut down and shed load
			if err := server.Shutdown(shutdownCtx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
