package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
	appfs "github.com/ahmedramy514/khadamli-darasi/fs"
	emailsvc "github.com/ahmedramy514/khadamli-darasi/services/email"
	dummydb "github.com/ahmedramy514/khadamli-darasi/storage/database/dummy"
	testutil "github.com/ahmedramy514/khadamli-darasi/tests"
)

var (
	accRepo   account.Repository
	notifRepo notification.Repository
	mailer    *emailsvc.ConsoleServiceMock
)

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()

	db := dummydb.Open()
	accRepo = dummydb.NewAccountRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)
	mailer = emailsvc.NewConsoleServiceMock(conf, logger)

	return &commandLine{
		conf:          conf,
		logger:        logger,
		db:            new(sqlx.DB), // only handed to the mocked goose runner
		accounts:      account.NewService(accRepo, nil, logger),
		notifications: notification.NewService(notifRepo, nil, logger),
		mailer:        mailer,
	}
}

type cliTest struct {
	name        string
	args        []string // without program name
	wantErr     error
	wantErrStr  string
	wantInvalid bool
	extra       interface{}
}

func isInvalid(err error) bool {
	var verrs validator.ValidationErrors
	var verr *core.ValidationError
	return errors.As(err, &verrs) || errors.As(err, &verr)
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantInvalid:
		assert.True(t, isInvalid(err), "want validation error, got %v", err)
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		cli.db = nil
		assert.ErrorIs(t, cli.run([]string{"admin", "migrate", "up"}), errNoSQLDatabase)
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-name", "Awe", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "password too short", args: []string{"adduser", "-name", "Awe", "-email", "awe@test.cd"}, extra: extra{pwd: "lol"}, wantInvalid: true},
		{name: "unknown role", args: []string{"adduser", "-name", "Awe", "-email", "awe@test.cd", "-role", "admin"}, extra: extra{pwd: "password"}, wantInvalid: true},
		{name: "teacher", args: []string{"adduser", "-name", "Awe", "-email", "Awe@Test.cd"}, extra: extra{pwd: "password"}},
		{name: "student", args: []string{"adduser", "-name", "Kin", "-email", "kin@test.cd", "-role", "student"}, extra: extra{pwd: "password"}},
		{name: "duplicate email", args: []string{"adduser", "-name", "Awe", "-email", "awe@test.cd"}, extra: extra{pwd: "password"}, wantInvalid: true},
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
			tt.check(t, cli.run(args))
		})
	}

	teacher, err := accRepo.GetAccountByEmail(context.Background(), "awe@test.cd")
	require.NoError(t, err)
	assert.Equal(t, account.RoleTeacher, teacher.Role)
	assert.NoError(t, teacher.CheckPassword("password"))

	student, err := accRepo.GetAccountByEmail(context.Background(), "kin@test.cd")
	require.NoError(t, err)
	assert.Equal(t, account.RoleStudent, student.Role)
}

func Test_commandLine_resetWeekly(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	acc1 := testutil.CreateAccount(t, cli.accounts, "One", "one@test.cd", account.RoleStudent)
	acc2 := testutil.CreateAccount(t, cli.accounts, "Two", "two@test.cd", account.RoleHelper)
	_, err := cli.accounts.AwardPoints(ctx, acc1.ID, 30, true)
	require.NoError(t, err)
	_, err = cli.accounts.AwardPoints(ctx, acc2.ID, 15, true)
	require.NoError(t, err)

	require.NoError(t, cli.run([]string{"admin", "resetweekly"}))

	for _, id := range []string{acc1.ID, acc2.ID} {
		acc, err := cli.accounts.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, acc.WeeklyPoints)
		assert.NotZero(t, acc.Points)
	}
}

func Test_commandLine_digest(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	acc1 := testutil.CreateAccount(t, cli.accounts, "One", "one@test.cd", account.RoleStudent)
	testutil.CreateAccount(t, cli.accounts, "Two", "two@test.cd", account.RoleStudent)
	_, err := cli.notifications.Notify(ctx, notification.NewNotification{
		RecipientID: acc1.ID,
		Type:        notification.TypeAnswer,
		Title:       "New answer",
		Description: "Someone answered your question",
	})
	require.NoError(t, err)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true, cli.logger)
	require.NoError(t, cli.run([]string{"admin", "digest"}))

	sent := mailer.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "one@test.cd", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "One")
	}
}

func Test_commandLine_token(t *testing.T) {
	cli := setup(t)
	testutil.CreateAccount(t, cli.accounts, "One", "one@test.cd", account.RoleStudent)

	tests := []cliTest{
		{name: "no email", args: []string{"token"}, wantErr: errHelp},
		{name: "not found", args: []string{"token", "-email", "lol@test.cd"}, wantErr: account.ErrNotFound},
		{name: "found", args: []string{"token", "-email", "ONE@test.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}
