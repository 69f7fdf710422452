package logsvc

import (
	"log"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

// RollbarLogger prints every entry and reports it to rollbar.
// Debug entries are only reported in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is a log call split the way rollbar wants it.
type entry struct {
	person *account.Account
	extras map[string]interface{}
	rest   []interface{}
}

// newEntry accepts msg args of the form: error, map[string]interface{}, account.Account.
// The first account is the acting one; its ledger state and any storage failure end up in extras.
func newEntry(args []interface{}) entry {
	e := entry{extras: make(map[string]interface{})}
	for _, arg := range args {
		switch v := arg.(type) {
		case account.Account:
			if e.person == nil {
				acc := v
				e.person = &acc
			}
			continue
		case map[string]interface{}:
			for key, val := range v {
				e.extras[key] = val
			}
			continue
		case error:
			var serr *core.StorageError
			if errors.As(v, &serr) {
				e.extras["storage_op"] = serr.Op
				e.extras["storage_transient"] = serr.Transient
			}
		}
		e.rest = append(e.rest, arg)
	}

	if e.person != nil {
		e.extras["account_role"] = e.person.Role
		e.extras["account_rank"] = e.person.Rank()
		e.extras["account_points"] = e.person.Points
	}
	return e
}

func (e entry) items(msg string) []interface{} {
	items := make([]interface{}, 0, len(e.rest)+2)
	items = append(items, msg)
	items = append(items, e.rest...)
	if len(e.extras) > 0 {
		items = append(items, e.extras)
	}
	return items
}

func (l *RollbarLogger) log(report func(...interface{}), msg string, args []interface{}) {
	e := newEntry(args)
	if report != nil {
		if e.person != nil {
			rollbar.SetPerson(e.person.ID, e.person.Name, e.person.Email)
		} else {
			rollbar.ClearPerson()
		}
		report(e.items(msg)...)
	}

	l.std.Println(msg)
	for _, arg := range e.rest {
		l.std.Printf("%+v\n", arg)
	}
	if len(e.extras) > 0 {
		l.std.Printf("%+v\n", e.extras)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	var report func(...interface{})
	if l.debug {
		report = rollbar.Debug
	}
	l.log(report, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.Info, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.Warning, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.Error, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
