// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrConflict signals that a uniqueness rule
// would be violated (duplicate username, second application to the
// same project).
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a referenced row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update would violate a
// uniqueness rule. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrTxConflict is returned when the store aborted a transaction because
// of a concurrent writer (deadlock or lock wait timeout).  The whole unit
// of work may be retried after re-reading current state.
var ErrTxConflict = errors.New("transaction conflict")

// MySQL server error numbers we react to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// translate maps driver errors onto the sentinels above.  Other errors are
// returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrConflict
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return ErrTxConflict
		}
	}
	return err
}
