package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

// postgres SQLSTATE classes worth retrying
var transientPGClasses = map[pq.ErrorClass]bool{
	"08": true, // connection exception
	"40": true, // transaction rollback (serialization failure, deadlock)
	"53": true, // insufficient resources
	"57": true, // operator intervention (admin shutdown, cannot connect now)
}

// StorageError classifies a driver error as transient or fatal. It returns nil for a nil err.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return core.NewStorageError(op, err, IsTransientErr(err))
}

func IsTransientErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientPGClasses[pqErr.Code.Class()]
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff { // primary result code
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation reports whether err comes from a unique or primary key constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// IsForeignKeyViolation reports whether err comes from a foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// CommitError classifies a failed commit. An error reported by the database means the transaction
// was rolled back and is classified like any other. Any other failure leaves the outcome unknown:
// the changes may be applied, so it is fatal and never retried.
func CommitError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	var liteErr *sqlite.Error
	if errors.As(err, &pqErr) || errors.As(err, &liteErr) {
		return StorageError(op, err)
	}
	return core.NewStorageError(op, err, false)
}
