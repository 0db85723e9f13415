// Package repository defines the data access layer.  Repositories accept a
// *sqlx.Tx for anything that must run inside an allocator transaction and
// use their own *sqlx.DB handle for plain reads.
//
// The error values below are shared by every repository so that higher
// layers can distinguish failure scenarios without knowing which database
// driver is in use.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded update matched no row because the
// row changed state underneath the caller.
var ErrConflict = errors.New("conflict")

// IsSerializationFailure reports whether err is the database aborting a
// transaction to preserve serializability: deadlocks, lock wait timeouts,
// serialization failures and a busy/locked SQLite file.
func IsSerializationFailure(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1213 deadlock, 1205 lock wait timeout
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsUniqueViolation reports whether err is a unique-key violation.
func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsConflict reports whether err means a concurrent writer won and the
// operation may succeed if retried.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || IsSerializationFailure(err) || IsUniqueViolation(err)
}
