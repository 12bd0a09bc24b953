// Package source maps configured source kinds to DocumentSource constructors.
package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/tabula/internal/adapters/driven/source/jsonl"
	"github.com/custodia-labs/tabula/internal/adapters/driven/source/mongodb"
	"github.com/custodia-labs/tabula/internal/adapters/driven/source/throttle"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
)

// BuilderFunc creates a DocumentSource. password fills a placeholder in
// connection strings and may be empty.
type BuilderFunc func(ctx context.Context, cfg domain.SourceSettings, password string) (driven.DocumentSource, error)

// Registry maps source kinds to their builders.
type Registry struct {
	builders map[domain.SourceKind]BuilderFunc
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.SourceKind]BuilderFunc),
	}
}

// Register adds a builder for kind, replacing any existing one.
func (r *Registry) Register(kind domain.SourceKind, builder BuilderFunc) {
	r.builders[kind] = builder
}

// Build creates the source configured in cfg, throttled to cfg.RateLimit
// batches per second when set.
func (r *Registry) Build(ctx context.Context, cfg domain.SourceSettings, password string) (driven.DocumentSource, error) {
	builder, ok := r.builders[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", domain.ErrUnsupportedType, cfg.Kind)
	}
	src, err := builder(ctx, cfg, password)
	if err != nil {
		return nil, err
	}
	return throttle.Wrap(src, cfg.RateLimit), nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RegisterDefaults registers the mongodb and jsonl sources.
func RegisterDefaults(r *Registry) {
	r.Register(domain.SourceMongoDB, buildMongo)
	r.Register(domain.SourceJSONL, buildJSONL)
}

func buildMongo(ctx context.Context, cfg domain.SourceSettings, password string) (driven.DocumentSource, error) {
	return mongodb.NewSource(ctx, cfg.MongoURI, password, cfg.MongoDatabase)
}

func buildJSONL(_ context.Context, cfg domain.SourceSettings, _ string) (driven.DocumentSource, error) {
	return jsonl.NewSource(cfg.JSONLDirectory)
}
