// Package jsonl provides a DocumentSource reading Extended JSON Lines files,
// one file per collection, as produced by mongoexport.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/tabula/internal/adapters/driven/source/bsonconv"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Extension is the file extension of a collection file.
const Extension = ".jsonl"

// maxLineSize is the largest document line accepted (the BSON document limit).
const maxLineSize = 16 << 20

// Source reads <directory>/<collection>.jsonl in file order.
type Source struct {
	directory string
}

// NewSource creates a source over directory.
func NewSource(directory string) (*Source, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrSourceUnavailable, directory)
	}
	return &Source{directory: directory}, nil
}

// Name returns the source kind.
func (s *Source) Name() string {
	return string(domain.SourceJSONL)
}

// ListCollections returns the names of the .jsonl files, sorted.
func (s *Source) ListCollections(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

// Sample returns the first n documents of a collection.
func (s *Source) Sample(ctx context.Context, collection string, n int) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, n)
	if n < 1 {
		return docs, nil
	}

	errStop := errors.New("stop")
	err := s.read(ctx, collection, func(doc domain.Document) error {
		docs = append(docs, doc)
		if len(docs) >= n {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return docs, nil
}

// Iterate streams a collection in batches.
func (s *Source) Iterate(ctx context.Context, collection string, batchSize int) (<-chan []domain.Document, <-chan error) {
	batches := make(chan []domain.Document, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		batch := make([]domain.Document, 0, max(batchSize, 0))
		send := func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case batches <- batch:
				batch = make([]domain.Document, 0, max(batchSize, 0))
				return nil
			}
		}

		err := s.read(ctx, collection, func(doc domain.Document) error {
			batch = append(batch, doc)
			if batchSize > 0 && len(batch) >= batchSize {
				return send()
			}
			return nil
		})
		if err == nil && len(batch) > 0 {
			err = send()
		}
		if err != nil {
			errs <- err
		}
	}()

	return batches, errs
}

// Close is a no-op.
func (s *Source) Close(_ context.Context) error {
	return nil
}

func (s *Source) path(collection string) (string, error) {
	if collection == "" || strings.ContainsAny(collection, `/\`) || collection == "." || collection == ".." {
		return "", fmt.Errorf("%w: collection name %q", domain.ErrInvalidInput, collection)
	}
	return filepath.Join(s.directory, collection+Extension), nil
}

// read calls fn for each document. Blank lines are ignored.
func (s *Source) read(ctx context.Context, collection string, fn func(domain.Document) error) error {
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("collection %s: %w", collection, domain.ErrNotFound)
		}
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	return decode(ctx, f, fn)
}

func decode(ctx context.Context, r io.Reader, fn func(domain.Document) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		doc, err := bsonconv.ParseExtJSON(raw)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", domain.ErrSourceUnavailable, line, err)
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("line %d", line)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: line %d: %w", domain.ErrSourceUnavailable, line+1, err)
	}
	return nil
}
