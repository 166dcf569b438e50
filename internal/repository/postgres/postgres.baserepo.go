// FilePath: internal/repository/postgres/postgres.baserepo.go
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
)

// PostgresBaseRepo wraps the sqlx calls every repository makes and maps driver
// errors onto the API error types. msg names the operation in the error.
type PostgresBaseRepo struct {
	db database.DB
}

func (r *PostgresBaseRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to begin transaction", err)
	}
	return tx, nil
}

func (r *PostgresBaseRepo) Commit(tx database.Transaction) error {
	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit transaction", err)
	}
	return nil
}

func (r *PostgresBaseRepo) exec(ctx context.Context, msg, query string, args ...interface{}) (sql.Result, error) {
	result, err := r.db.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError(msg, err)
	}
	return result, nil
}

func (r *PostgresBaseRepo) namedExec(ctx context.Context, msg, query string, arg interface{}) error {
	if _, err := r.db.GetDB().NamedExecContext(ctx, query, arg); err != nil {
		return errors.NewDatabaseError(msg, err)
	}
	return nil
}

// get scans a single row into dest. No row is a not found error.
func (r *PostgresBaseRepo) get(ctx context.Context, msg string, dest interface{}, query string, args ...interface{}) error {
	err := r.db.GetDB().GetContext(ctx, dest, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError(msg, err)
	}
	if err != nil {
		return errors.NewDatabaseError(msg, err)
	}
	return nil
}

func (r *PostgresBaseRepo) selectAll(ctx context.Context, msg string, dest interface{}, query string, args ...interface{}) error {
	if err := r.db.GetDB().SelectContext(ctx, dest, query, args...); err != nil {
		return errors.NewDatabaseError(msg, err)
	}
	return nil
}

// deleteRows runs a DELETE and reports how many rows went.
func (r *PostgresBaseRepo) deleteRows(ctx context.Context, msg, query string, args ...interface{}) (int64, error) {
	result, err := r.exec(ctx, msg, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return n, nil
}
