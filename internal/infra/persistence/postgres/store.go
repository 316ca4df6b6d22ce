// Package postgres provides a Postgres-backed survey store intended for the
// non-ephemeral deployment variant: the schema is created if missing and the
// dataset is only ingested when the table is empty.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"surveyscope/internal/survey"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion.
var _ survey.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/surveyscope?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a Postgres-backed survey record store.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS survey_records (
	id BIGSERIAL PRIMARY KEY,
	state TEXT NOT NULL,
	gender TEXT NOT NULL,
	age INTEGER NOT NULL,
	year TEXT NOT NULL,
	employment_status TEXT NOT NULL,
	wage INTEGER NOT NULL
)`

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and ensures the survey_records table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create survey_records table: %w", err)
	}
	return &Store{db: db}, nil
}

// Replace truncates the table and bulk-inserts the records.
func (s *Store) Replace(ctx context.Context, records []survey.Record) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE survey_records RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate survey_records: %w", err)
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
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO survey_records(state,gender,age,year,employment_status,wage) VALUES($1,$2,$3,$4,$5,$6)`)
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

// whereClause translates the filter into a parameterized conjunction using
// Postgres positional placeholders.
func whereClause(filter survey.Filter) (string, []any) {
	conds := filter.Conditions()
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, len(conds))
	args := make([]any, len(conds))
	for i, c := range conds {
		parts[i] = fmt.Sprintf("%s = $%d", c.Column, i+1)
		args[i] = c.Value
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// Query returns matching records ordered by surrogate key.
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
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT TRIM(`+column+`) FROM survey_records WHERE TRIM(`+column+`) <> '' ORDER BY 1`)
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

func validColumn(column string) bool {
	for _, c := range survey.FilterColumns {
		if c == column {
			return true
		}
	}
	return false
}
