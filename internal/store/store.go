// Package store persists polyswap data with sqlx. Store implements the
// exchange gateway; the package-level functions serve the rest of the API.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
)

// Store is the exchange gateway over a SQL database. A Store returned to an
// InTx callback runs every statement on that transaction.
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

var _ exchange.Gateway = (*Store)(nil)

// New returns a Store on db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

// DB returns the underlying database.
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx exchange.Gateway) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// exec runs a statement with ? placeholders rebound for the driver.
func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, q.Rebind(query), args...)
}

func get(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectAll(ctx context.Context, q sqlx.ExtContext, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}

// casResult turns a compare-and-set update result into ErrConflict when no
// row matched.
func casResult(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, exchange.ErrConflict)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either SQLite or Postgres.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, exchange.ErrNotFound)
	}
	return fmt.Errorf("getting %s: %w", what, err)
}
