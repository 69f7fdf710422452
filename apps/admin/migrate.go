package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errNoSQLDatabase = errors.New("migrations need a SQL database engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(context.Background(), cli.db, args[0], arguments...)
}
