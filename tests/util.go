package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	logsvc "github.com/ahmedramy514/khadamli-darasi/services/logger"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

func init() {
	// hashing passwords at the default cost makes tests crawl
	account.PasswordCost = 4
}

// NewLogger returns a logger that discards everything and never reports to rollbar.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
}

// PrepareDB returns a migrated in-memory sqlite database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateAccount(t *testing.T, svc *account.Service, name, email, role string) account.Account {
	t.Helper()
	acc, err := svc.Create(context.Background(), account.NewAccount{
		Name:            name,
		Email:           email,
		Password:        "password",
		PasswordConfirm: "password",
		Role:            role,
	})
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}
