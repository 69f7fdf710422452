package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/storage/database"
)

var errNoRowsUpdated = errors.New("no rows updated")

// inTx runs fn in a transaction and commits it. A commit whose outcome is unknown is fatal,
// so callers never retry a change that may already be applied.
func inTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return database.StorageError("beginning transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return database.CommitError("committing "+op, tx.Commit())
}

// updateThenSelect runs update and reads the updated row back in the same transaction,
// so the returned state is exactly the one the update produced.
// It returns errNoRowsUpdated when update matched nothing.
func updateThenSelect(ctx context.Context, db *sqlx.DB, op string, update func(tx *sqlx.Tx) (sql.Result, error), read func(tx *sqlx.Tx) error) error {
	return inTx(ctx, db, op, func(tx *sqlx.Tx) error {
		res, err := update(tx)
		if err != nil {
			return database.StorageError(op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return database.StorageError(op, err)
		}
		if n == 0 {
			return errNoRowsUpdated
		}
		return read(tx)
	})
}

func orderBy(ordering []core.DBOrdering) string {
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		terms = append(terms, ord.String())
	}
	return strings.Join(terms, ", ")
}
