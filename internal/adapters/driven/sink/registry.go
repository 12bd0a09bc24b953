// Package sink maps configured sink kinds to TableSink constructors.
package sink

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/tabula/internal/adapters/driven/sink/parquet"
	"github.com/custodia-labs/tabula/internal/adapters/driven/sink/sqlite"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// BuilderFunc creates a TableSink from sink settings.
type BuilderFunc func(cfg domain.SinkSettings) (driven.TableSink, error)

// Registry maps sink kinds to their builders.
type Registry struct {
	builders map[domain.SinkKind]BuilderFunc
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.SinkKind]BuilderFunc),
	}
}

// Register adds a builder for kind, replacing any existing one.
func (r *Registry) Register(kind domain.SinkKind, builder BuilderFunc) {
	r.builders[kind] = builder
}

// Build creates the sink configured in cfg.
func (r *Registry) Build(cfg domain.SinkSettings) (driven.TableSink, error) {
	builder, ok := r.builders[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: sink %q", domain.ErrUnsupportedType, cfg.Kind)
	}
	return builder(cfg)
}

// Has returns true if kind is registered.
func (r *Registry) Has(kind domain.SinkKind) bool {
	_, ok := r.builders[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []domain.SinkKind {
	kinds := make([]domain.SinkKind, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RegisterDefaults registers the parquet and sqlite sinks.
func RegisterDefaults(r *Registry) {
	r.Register(domain.SinkParquet, buildParquet)
	r.Register(domain.SinkSQLite, buildSQLite)
}

func buildParquet(cfg domain.SinkSettings) (driven.TableSink, error) {
	return parquet.NewSink(cfg.Directory, cfg.Compression)
}

func buildSQLite(cfg domain.SinkSettings) (driven.TableSink, error) {
	return sqlite.NewSink(cfg.SQLitePath)
}
