package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// insertReturningID executes an INSERT written with ? placeholders and
// returns the generated primary key.  Postgres has no LastInsertId, so the
// statement gets a RETURNING clause there.
func insertReturningID(ctx context.Context, ex sqlx.ExtContext, query string, args ...any) (uint64, error) {
	if ex.DriverName() == "postgres" {
		var id uint64
		if err := ex.QueryRowxContext(ctx, ex.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// get runs a single-row query and maps sql.ErrNoRows to ErrNotFound.
func get(ctx context.Context, ex sqlx.ExtContext, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, ex, dest, ex.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func selectAll(ctx context.Context, ex sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, ex, dest, ex.Rebind(query), args...)
}

// execOne runs a guarded UPDATE and reports ErrConflict when it touched no row.
func execOne(ctx context.Context, ex sqlx.ExtContext, query string, args ...any) error {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
