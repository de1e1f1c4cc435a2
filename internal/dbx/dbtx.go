// Package dbx holds the small database plumbing shared by every repository:
// a DBTX interface satisfied by both *sql.DB and *sql.Tx, and a transaction
// helper. Repositories accept a DBTX so callers can compose several
// repository calls into one atomic unit, e.g. a penalty write plus its
// change-journal append.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql that repositories use.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx starts a transaction, runs fn against it and commits on success.
// On error or panic the transaction is rolled back; panics are rethrown.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := penalties.NewSQLiteRepository(tx).Upsert(ctx, rec); err != nil {
//	        return err
//	    }
//	    return journal.NewSQLiteRepository(tx).Append(ctx, entry)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
