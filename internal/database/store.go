package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"mess-o-midi-backend/internal/apperr"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store is the storage access layer. Queries are written with `?`
// placeholders and rebound for the active driver, so the same SQL runs on
// SQLite and PostgreSQL.
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// Open connects to driver ("sqlite" or "postgres") and verifies the connection.
func Open(driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite" {
		// One writer at a time; busy_timeout in the DSN covers the rest.
		db.SetMaxOpenConns(1)
	}

	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) DriverName() string {
	return s.db.DriverName()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FetchOne scans the first row into dest. A missing row is apperr.ErrNotFound.
func (s *Store) FetchOne(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}

// FetchAll scans every row into dest, which must be a pointer to a slice.
func (s *Store) FetchAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}

// Insert adds a row to table and returns its generated id. fields must not
// contain "id".
func (s *Store) Insert(ctx context.Context, table string, fields map[string]interface{}) (uuid.UUID, error) {
	id := uuid.New()

	cols := make([]string, 0, len(fields)+1)
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	cols = append([]string{"id"}, cols...)

	args := make([]interface{}, len(cols))
	args[0] = id.String()
	for i, col := range cols[1:] {
		args[i+1] = fields[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...); err != nil {
		return uuid.Nil, wrapExecError(err)
	}
	return id, nil
}

// Update sets fields on the rows matching where and returns the number of
// rows changed.
func (s *Store) Update(ctx context.Context, table string, fields map[string]interface{}, where string, whereArgs ...interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: update %s with no fields", apperr.ErrStorage, table)
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(whereArgs))
	for i, col := range cols {
		sets[i] = col + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
	return s.exec(ctx, query, args...)
}

// Delete removes the rows matching where and returns how many were removed.
func (s *Store) Delete(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	return s.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...)
}

// Exec runs an arbitrary statement.
func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return nil, wrapExecError(err)
	}
	return res, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return n, nil
}

// WithTx runs fn inside a transaction. The Store handed to fn issues every
// statement on that transaction; fn's error rolls it back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, nested := s.q.(*sqlx.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", apperr.ErrStorage, err)
	}

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", apperr.ErrStorage, err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint on either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

func wrapExecError(err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
