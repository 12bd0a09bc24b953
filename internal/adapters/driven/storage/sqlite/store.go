package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tabula/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Store is a SQLite-backed store for run history.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tabula/data/runs.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tabula", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_runs.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// schemaVersion returns the highest applied migration.
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Save stores or replaces a run and its collection reports.
func (s *runStore) Save(ctx context.Context, run domain.RunReport) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, sink, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			sink = excluded.sink,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, run.ID, run.Source, run.Sink, unixNano(run.StartedAt), unixNano(run.CompletedAt))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_reports WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clearing collection reports: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO collection_reports (
			run_id, position, collection, classification, profile, status, error,
			documents_in, rows_out, columns_before, columns_after, skipped, unplanned,
			batches, checksum, output, started_at, duration_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range run.Collections {
		profileJSON, err := json.Marshal(r.Profile)
		if err != nil {
			return fmt.Errorf("marshalling profile: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Collection, string(r.Classification),
			string(profileJSON), string(r.Status), r.Error,
			r.DocumentsIn, r.RowsOut, r.ColumnsBefore, r.ColumnsAfter, r.Skipped, r.Unplanned,
			r.Batches, r.Checksum, r.Output, unixNano(r.StartedAt), int64(r.Duration)); err != nil {
			return fmt.Errorf("saving collection report %s: %w", r.Collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *runStore) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, sink, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if err := s.loadCollections(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.RunReport, error) {
	query := `
		SELECT id, source, sink, started_at, completed_at
		FROM runs ORDER BY started_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var runs []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if err := s.loadCollections(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *runStore) loadCollections(ctx context.Context, run *domain.RunReport) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT collection, classification, profile, status, error,
			documents_in, rows_out, columns_before, columns_after, skipped, unplanned,
			batches, checksum, output, started_at, duration_ns
		FROM collection_reports WHERE run_id = ? ORDER BY position
	`, run.ID)
	if err != nil {
		return fmt.Errorf("querying collection reports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.CollectionReport
		var classification, status, profileJSON string
		var startedAt, duration int64
		if err := rows.Scan(&r.Collection, &classification, &profileJSON, &status, &r.Error,
			&r.DocumentsIn, &r.RowsOut, &r.ColumnsBefore, &r.ColumnsAfter, &r.Skipped, &r.Unplanned,
			&r.Batches, &r.Checksum, &r.Output, &startedAt, &duration); err != nil {
			return fmt.Errorf("scanning collection report: %w", err)
		}
		if err := json.Unmarshal([]byte(profileJSON), &r.Profile); err != nil {
			return fmt.Errorf("unmarshaling profile: %w", err)
		}
		r.Classification = domain.Classification(classification)
		r.Status = domain.CollectionStatus(status)
		r.StartedAt = fromUnixNano(startedAt)
		r.Duration = time.Duration(duration)
		run.Collections = append(run.Collections, r)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating collection reports: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunReport, error) {
	var run domain.RunReport
	var startedAt, completedAt int64
	if err := row.Scan(&run.ID, &run.Source, &run.Sink, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	run.StartedAt = fromUnixNano(startedAt)
	run.CompletedAt = fromUnixNano(completedAt)
	return &run, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
