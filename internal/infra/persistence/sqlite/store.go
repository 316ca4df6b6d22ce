// Package sqlite persists survey records in a single typed table using the
// pure-Go sqlite driver. The default posture is ephemeral: the table is
// dropped and recreated on every boot so the store always mirrors the source
// file exactly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"surveyscope/internal/survey"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion.
var _ survey.Store = (*Store)(nil)

// Store is a SQLite-backed survey record store.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `CREATE TABLE IF NOT EXISTS survey_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	state TEXT NOT NULL,
	gender TEXT NOT NULL,
	age INTEGER NOT NULL,
	year TEXT NOT NULL,
	employment_status TEXT NOT NULL,
	wage INTEGER NOT NULL
)`

// NewStore opens (creating if needed) a SQLite database at path and ensures
// the survey_records table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "surveyscope.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create survey_records table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Replace drops and recreates the table, then bulk-inserts the records. This
// is the documented ephemeral/demo mode: every boot rebuilds from source.
func (s *Store) Replace(ctx context.Context, records []survey.Record) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS survey_records`); err != nil {
		return fmt.Errorf("drop survey_records: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("recreate survey_records: %w", err)
	}
	return s.insert(ctx, records)
}

// LoadIfEmpty inserts the records only when the table holds no rows.
func (s *Store) LoadIfEmpty(ctx context.Context, records []survey.Record) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := s.insert(ctx, records); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) insert(ctx context.Context, records []survey.Record) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO survey_records(state,gender,age,year,employment_status,wage) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		retErr = err
		return retErr
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.State, r.Gender, r.Age, r.Year, r.EmploymentStatus, r.Wage); err != nil {
			retErr = fmt.Errorf("insert record: %w", err)
			return retErr
		}
	}
	return tx.Commit()
}

// whereClause translates the filter into a parameterized conjunction. The
// zero filter yields an empty clause.
func whereClause(filter survey.Filter) (string, []any) {
	conds := filter.Conditions()
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, len(conds))
	args := make([]any, len(conds))
	for i, c := range conds {
		parts[i] = c.Column + " = ?"
		args[i] = c.Value
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// Query returns matching records ordered by surrogate key, which is insertion order.
func (s *Store) Query(ctx context.Context, filter survey.Filter) ([]survey.Record, error) {
	where, args := whereClause(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT state,gender,age,year,employment_status,wage FROM survey_records`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query survey_records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []survey.Record{}
	for rows.Next() {
		var r survey.Record
		if err := rows.Scan(&r.State, &r.Gender, &r.Age, &r.Year, &r.EmploymentStatus, &r.Wage); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// All returns every record in surrogate-key order.
func (s *Store) All(ctx context.Context) ([]survey.Record, error) {
	return s.Query(ctx, survey.Filter{})
}

// Distinct returns the sorted distinct non-empty values of a filterable column.
func (s *Store) Distinct(ctx context.Context, column string) ([]string, error) {
	if !validColumn(column) {
		return nil, fmt.Errorf("distinct: unknown column %q", column)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT TRIM(`+column+`) FROM survey_records WHERE TRIM(`+column+`) != '' ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count reports the number of loaded records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count survey_records: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func validColumn(column string) bool {
	for _, c := range survey.FilterColumns {
		if c == column {
			return true
		}
	}
	return false
}
