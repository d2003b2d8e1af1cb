package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrorKind groups storage failures for logging. It is never shown to clients.
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable"
	KindConstraint  ErrorKind = "constraint"
	KindCorrupt     ErrorKind = "corrupt_record"
	KindCanceled    ErrorKind = "canceled"
	KindUnknown     ErrorKind = "unknown"
)

// Error is returned by every Repository operation that fails
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a repository error, or KindUnknown for anything else
func KindOf(err error) ErrorKind {
	var repoErr *Error
	if errors.As(err, &repoErr) {
		return repoErr.Kind
	}
	return KindUnknown
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// classify maps driver errors from either engine onto an ErrorKind
func classify(err error) ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return KindUnavailable
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN,
			sqlite3lib.SQLITE_IOERR, sqlite3lib.SQLITE_READONLY, sqlite3lib.SQLITE_FULL:
			return KindUnavailable
		case sqlite3lib.SQLITE_CONSTRAINT:
			return KindConstraint
		case sqlite3lib.SQLITE_CORRUPT, sqlite3lib.SQLITE_NOTADB:
			return KindCorrupt
		}
		return KindUnknown
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return KindUnavailable
		case "23":
			return KindConstraint
		case "XX":
			return KindCorrupt
		}
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUnavailable
	}
	// database/sql does not export its closed-handle error
	if strings.Contains(err.Error(), "database is closed") {
		return KindUnavailable
	}
	return KindUnknown
}
