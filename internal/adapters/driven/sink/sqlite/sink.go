// Package sqlite provides a TableSink writing one SQLite table per collection.
//
// All columns are TEXT. Rows go to a <table>__staging table that replaces
// the final table in one transaction on Commit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Ensure Sink implements the interface.
var _ driven.TableSink = (*Sink)(nil)

const stagingSuffix = "__staging"

// Sink writes tables into one SQLite database file.
type Sink struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	claimed map[string]string // lower-cased table name -> collection
}

// NewSink opens or creates the database at path.
func NewSink(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Collections are written concurrently; SQLite allows one writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Sink{db: db, path: path, claimed: make(map[string]string)}, nil
}

// Name returns the sink kind.
func (s *Sink) Name() string {
	return string(domain.SinkSQLite)
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}

// claim reserves a table for collection. SQLite table names are case
// insensitive, so "Users" and "users" share one table.
func (s *Sink) claim(table, collection string) error {
	key := strings.ToLower(table)
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.claimed[key]; ok && owner != collection {
		return fmt.Errorf("%w: table %s is already written by collection %q", domain.ErrSinkWriteFailed, table, owner)
	}
	s.claimed[key] = collection
	return nil
}

// Open creates an empty staging table with one TEXT column per name.
// A collection without columns produces no table.
func (s *Sink) Open(ctx context.Context, collection string, columns []string) (driven.TableWriter, error) {
	if len(columns) == 0 {
		return emptyWriter{}, nil
	}

	final := TableName(collection)
	if err := s.claim(final, collection); err != nil {
		return nil, err
	}
	staging := final + stagingSuffix

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " TEXT NOT NULL"
	}

	stmts := []string{
		"DROP TABLE IF EXISTS " + quoteIdent(staging),
		"CREATE TABLE " + quoteIdent(staging) + " (" + strings.Join(defs, ", ") + ")",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSinkWriteFailed, err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return &writer{
		db:      s.db,
		path:    s.path,
		final:   final,
		staging: staging,
		columns: len(columns),
		insert:  "INSERT INTO " + quoteIdent(staging) + " VALUES (" + placeholders + ")",
	}, nil
}

// ReadTable returns every row of a committed table in insertion order.
func (s *Sink) ReadTable(ctx context.Context, collection string) (*domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(TableName(collection))+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	table := &domain.Table{Columns: columns}
	for rows.Next() {
		record := make([]string, len(columns))
		dest := make([]any, len(columns))
		for i := range record {
			dest[i] = &record[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", collection, err)
	}
	return table, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// TableName maps a collection name to its table name.
func TableName(collection string) string {
	return strings.ReplaceAll(collection, ".", "_")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type writer struct {
	db      *sql.DB
	path    string
	final   string
	staging string
	columns int
	rows    int
	insert  string
}

// WriteBatch inserts t in one transaction.
func (w *writer) WriteBatch(ctx context.Context, t *domain.Table) error {
	if len(t.Columns) != w.columns {
		return fmt.Errorf("column count %d, want %d", len(t.Columns), w.columns)
	}
	if t.NumRows() == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, w.insert)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	args := make([]any, w.columns)
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	w.rows += t.NumRows()
	return nil
}

// Commit replaces the final table with the staging table.
func (w *writer) Commit(ctx context.Context) (string, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(w.final)); err != nil {
		return "", fmt.Errorf("dropping %s: %w", w.final, err)
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE "+quoteIdent(w.staging)+" RENAME TO "+quoteIdent(w.final)); err != nil {
		return "", fmt.Errorf("renaming %s: %w", w.staging, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing transaction: %w", err)
	}

	logger.Debug("Wrote %d rows to %s table %s", w.rows, w.path, w.final)
	return w.path + "#" + w.final, nil
}

// Abort drops the staging table.
func (w *writer) Abort(ctx context.Context) error {
	_, err := w.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(w.staging))
	return err
}

// emptyWriter backs a plan without columns. It accepts zero-width rows,
// which carry no values, and publishes nothing.
type emptyWriter struct{}

func (emptyWriter) WriteBatch(_ context.Context, t *domain.Table) error {
	if len(t.Columns) != 0 {
		return fmt.Errorf("column count %d, want 0", len(t.Columns))
	}
	return nil
}

func (emptyWriter) Commit(_ context.Context) (string, error) {
	return "", nil
}

func (emptyWriter) Abort(_ context.Context) error {
	return nil
}
