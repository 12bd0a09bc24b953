// Package parquet provides a TableSink writing one Parquet file per collection.
//
// Every column is a required BYTE_ARRAY annotated as String. Each batch
// becomes one row group. Output is written to a hidden temporary file and
// renamed into place on Commit.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/compress"
	"github.com/apache/arrow/go/v11/parquet/file"
	"github.com/apache/arrow/go/v11/parquet/schema"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Ensure Sink implements the interface.
var _ driven.TableSink = (*Sink)(nil)

// Extension is the output file extension.
const Extension = ".parquet"

const createdBy = "tabula"

var codecs = map[string]compress.Compression{
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"zstd":   compress.Codecs.Zstd,
	"none":   compress.Codecs.Uncompressed,
}

// Sink writes <directory>/<collection>.parquet.
type Sink struct {
	directory string
	codec     compress.Compression

	mu      sync.Mutex
	claimed map[string]string // file name -> collection
}

// NewSink creates a sink writing into directory with the named compression
// (snappy, gzip, zstd or none).
func NewSink(directory, compression string) (*Sink, error) {
	if compression == "" {
		compression = domain.DefaultCompression
	}
	codec, ok := codecs[compression]
	if !ok {
		return nil, fmt.Errorf("%w: parquet compression %q", domain.ErrUnsupportedType, compression)
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Sink{
		directory: directory,
		codec:     codec,
		claimed:   make(map[string]string),
	}, nil
}

// Name returns the sink kind.
func (s *Sink) Name() string {
	return string(domain.SinkParquet)
}

// Path returns the final file path of a collection.
func (s *Sink) Path(collection string) string {
	return filepath.Join(s.directory, FileName(collection))
}

// FileName maps a collection name to its output file name.
func FileName(collection string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", string(os.PathSeparator), "_")
	return r.Replace(collection) + Extension
}

// claim reserves an output file for collection. Two collections mapping to
// the same file would replace each other on commit.
func (s *Sink) claim(name, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.claimed[name]; ok && owner != collection {
		return fmt.Errorf("%w: %s is already written by collection %q", domain.ErrSinkWriteFailed, name, owner)
	}
	s.claimed[name] = collection
	return nil
}

// Open creates the temporary file and writes the schema.
// A collection without columns produces no file.
func (s *Sink) Open(_ context.Context, collection string, columns []string) (driven.TableWriter, error) {
	if len(columns) == 0 {
		return emptyWriter{}, nil
	}

	if err := s.claim(FileName(collection), collection); err != nil {
		return nil, err
	}

	final := s.Path(collection)
	tmp := filepath.Join(s.directory, "."+filepath.Base(final)+".tmp")

	root, err := stringSchema(columns)
	if err != nil {
		return nil, fmt.Errorf("%w: schema: %w", domain.ErrSinkWriteFailed, err)
	}

	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSinkWriteFailed, err)
	}

	props := parquet.NewWriterProperties(
		parquet.WithCreatedBy(createdBy),
		parquet.WithCompression(s.codec),
	)
	return &writer{
		file:    f,
		tmp:     tmp,
		final:   final,
		columns: len(columns),
		pw:      file.NewParquetWriter(f, root, file.WithWriterProps(props)),
	}, nil
}

// Close is a no-op; each writer owns its file.
func (s *Sink) Close() error {
	return nil
}

func stringSchema(columns []string) (*schema.GroupNode, error) {
	fields := make([]schema.Node, len(columns))
	for i, name := range columns {
		node, err := schema.NewPrimitiveNodeLogical(name, parquet.Repetitions.Required,
			schema.StringLogicalType{}, parquet.Types.ByteArray, -1, -1)
		if err != nil {
			return nil, err
		}
		fields[i] = node
	}
	return schema.NewGroupNode("schema", parquet.Repetitions.Required, fields, -1)
}

type writer struct {
	file    *os.File
	tmp     string
	final   string
	columns int
	rows    int
	pw      *file.Writer
	closed  bool
}

// WriteBatch appends t as one row group. Empty tables are skipped.
func (w *writer) WriteBatch(_ context.Context, t *domain.Table) error {
	if len(t.Columns) != w.columns {
		return fmt.Errorf("column count %d, want %d", len(t.Columns), w.columns)
	}
	if t.NumRows() == 0 {
		return nil
	}

	rgw := w.pw.AppendBufferedRowGroup()
	values := make([]parquet.ByteArray, t.NumRows())
	for col := 0; col < w.columns; col++ {
		for i, row := range t.Rows {
			values[i] = parquet.ByteArray(row[col])
		}

		cw, err := rgw.Column(col)
		if err != nil {
			return fmt.Errorf("column %s: %w", t.Columns[col], err)
		}
		bw, ok := cw.(*file.ByteArrayColumnChunkWriter)
		if !ok {
			return fmt.Errorf("column %s: unexpected writer %T", t.Columns[col], cw)
		}
		if _, err := bw.WriteBatch(values, nil, nil); err != nil {
			return fmt.Errorf("column %s: %w", t.Columns[col], err)
		}
		if err := cw.Close(); err != nil {
			return fmt.Errorf("column %s: %w", t.Columns[col], err)
		}
	}
	if err := rgw.Close(); err != nil {
		return fmt.Errorf("row group: %w", err)
	}

	w.rows += t.NumRows()
	return nil
}

// Commit finishes the file and renames it into place.
func (w *writer) Commit(_ context.Context) (string, error) {
	if err := w.close(); err != nil {
		_ = os.Remove(w.tmp)
		return "", err
	}
	if err := os.Rename(w.tmp, w.final); err != nil {
		_ = os.Remove(w.tmp)
		return "", fmt.Errorf("publishing %s: %w", w.final, err)
	}
	logger.Debug("Wrote %d rows to %s", w.rows, w.final)
	return w.final, nil
}

// Abort removes the temporary file.
func (w *writer) Abort(_ context.Context) error {
	closeErr := w.close()
	if err := os.Remove(w.tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

func (w *writer) close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.pw.Close()
	// The parquet writer closes its sink; closing again is harmless.
	if cerr := w.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("closing parquet file: %w", err)
	}
	return nil
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
