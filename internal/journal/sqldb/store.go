// Package sqldb provides a SQL analysis journal for SQLite, PostgreSQL and MySQL.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/journal/dialect"
)

const defaultLimit = 100

// Store is a SQL implementation of ports.JournalStore that supports
// multiple database dialects.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ ports.JournalStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres, mysql
	DSN    string // Data source name / connection string
}

// New opens the database, applies dialect pragmas and creates the schema.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	dsn, err := normalizeDSN(d, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.Name() == string(dialect.SQLite) {
		// One connection keeps ":memory:" databases coherent and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSQLite creates a SQLite-backed store.
func NewSQLite(path string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: path})
}

// Dialect returns the dialect being used
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

// normalizeDSN enables time parsing for MySQL so DATETIME columns scan
// into time.Time.
func normalizeDSN(d dialect.Dialect, dsn string) (string, error) {
	if d.Name() != string(dialect.MySQL) {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

func (s *Store) initSchema() error {
	d := s.dialect
	columns := []string{
		"id " + d.KeyType() + " PRIMARY KEY",
		"session_id " + d.KeyType() + " NOT NULL",
		"query_text " + d.TextType() + " NOT NULL",
		"attributes " + d.TextType() + " NOT NULL",
		"status VARCHAR(16) NOT NULL",
		"result " + d.TextType(),
		"failure " + d.TextType() + " NOT NULL",
		"duration_ns " + d.IntegerType() + " NOT NULL",
		"created_at " + d.TimestampType() + " NOT NULL",
	}
	if inline := d.InlineIndex("idx_analysis_journal_session", "session_id", "created_at"); inline != "" {
		columns = append(columns, inline)
	}

	statements := []string{
		"CREATE TABLE IF NOT EXISTS analysis_journal (\n\t" + strings.Join(columns, ",\n\t") + "\n)",
	}
	if idx := d.CreateIndex("idx_analysis_journal_session", "analysis_journal", "session_id", "created_at"); idx != "" {
		statements = append(statements, idx)
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

type entryRow struct {
	ID         string         `db:"id"`
	SessionID  string         `db:"session_id"`
	QueryText  string         `db:"query_text"`
	Attributes string         `db:"attributes"`
	Status     string         `db:"status"`
	Result     sql.NullString `db:"result"`
	Failure    string         `db:"failure"`
	DurationNS int64          `db:"duration_ns"`
	CreatedAt  time.Time      `db:"created_at"`
}

func toRow(e *domain.JournalEntry) (*entryRow, error) {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	row := &entryRow{
		ID:         e.ID,
		SessionID:  e.SessionID,
		QueryText:  e.Query,
		Attributes: string(attrs),
		Status:     string(e.Status),
		Failure:    e.Failure,
		DurationNS: int64(e.Duration),
		CreatedAt:  e.CreatedAt.UTC(),
	}
	if e.Result != nil {
		result, err := json.Marshal(e.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		row.Result = sql.NullString{String: string(result), Valid: true}
	}
	return row, nil
}

func (r *entryRow) toDomain() (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{
		ID:        r.ID,
		SessionID: r.SessionID,
		Query:     r.QueryText,
		Status:    domain.JournalStatus(r.Status),
		Failure:   r.Failure,
		Duration:  time.Duration(r.DurationNS),
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Attributes), &e.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if r.Result.Valid {
		var result domain.AnalysisResult
		if err := json.Unmarshal([]byte(r.Result.String), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		e.Result = &result
	}
	return e, nil
}

func (s *Store) Record(ctx context.Context, entry *domain.JournalEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("journal entry id is required")
	}
	row, err := toRow(entry)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`INSERT INTO analysis_journal
	          (id, session_id, query_text, attributes, status, result, failure, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.SessionID, row.QueryText, row.Attributes, row.Status,
		row.Result, row.Failure, row.DurationNS, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.JournalEntry, error) {
	query := s.dialect.Rebind(`SELECT id, session_id, query_text, attributes, status, result, failure, duration_ns, created_at
	          FROM analysis_journal WHERE id = ?`)

	var row entryRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journal entry %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return row.toDomain()
}

func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.JournalEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		where string
		args  []any
	)
	if opts.SessionID != "" {
		where = "WHERE session_id = ?"
		args = append(args, opts.SessionID)
	}
	args = append(args, limit, opts.Offset)

	query := s.dialect.Rebind(`SELECT id, session_id, query_text, attributes, status, result, failure, duration_ns, created_at
	          FROM analysis_journal ` + where + `
	          ORDER BY created_at DESC, id DESC
	          LIMIT ? OFFSET ?`)

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}

	entries := make([]*domain.JournalEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
