// Package history keeps a local SQLite log of validation runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/bfv/rulecheck/internal/engine"
)

const schemaVersion = 1

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// Run is one recorded validation.
type Run struct {
	ID             string
	Dataset        string
	DataPath       string
	RulesPath      string
	RowsChecked    int
	MissingColumns int
	IssueCounts    engine.IssueCounts
	CreatedAt      time.Time
}

// RunFromSummary fills a Run from an evaluation result. ID and CreatedAt are
// assigned by Record.
func RunFromSummary(dataset, dataPath, rulesPath string, s *engine.Summary) Run {
	return Run{
		Dataset:        dataset,
		DataPath:       dataPath,
		RulesPath:      rulesPath,
		RowsChecked:    s.RowsChecked,
		MissingColumns: len(s.MissingColumns),
		IssueCounts:    s.IssueCounts,
	}
}

// Store is a run history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path != MemoryPath {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("executing %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("history opened")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dataset TEXT NOT NULL,
			data_path TEXT NOT NULL,
			rules_path TEXT NOT NULL,
			rows_checked INTEGER NOT NULL,
			missing_columns INTEGER NOT NULL,
			missing_column INTEGER NOT NULL,
			non_numeric_value INTEGER NOT NULL,
			range_violation INTEGER NOT NULL,
			cross_field_violation INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating history schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	log.Debug().Int("version", schemaVersion).Msg("history schema migrated")
	return nil
}

// Record stores r and returns it with ID and CreatedAt set.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (
			id, dataset, data_path, rules_path, rows_checked, missing_columns,
			missing_column, non_numeric_value, range_violation, cross_field_violation, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Dataset, r.DataPath, r.RulesPath, r.RowsChecked, r.MissingColumns,
		r.IssueCounts.MissingColumn, r.IssueCounts.NonNumericValue,
		r.IssueCounts.RangeViolation, r.IssueCounts.CrossFieldViolation,
		r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	log.Debug().Str("id", r.ID).Str("dataset", r.Dataset).Msg("run recorded")
	return r, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, dataset, data_path, rules_path, rows_checked, missing_columns,
			missing_column, non_numeric_value, range_violation, cross_field_violation, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created int64
		)
		if err := rows.Scan(
			&r.ID, &r.Dataset, &r.DataPath, &r.RulesPath, &r.RowsChecked, &r.MissingColumns,
			&r.IssueCounts.MissingColumn, &r.IssueCounts.NonNumericValue,
			&r.IssueCounts.RangeViolation, &r.IssueCounts.CrossFieldViolation, &created,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}
