package driving

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// PipelineService converts collections of documents into flat tables.
type PipelineService interface {
	// Collections lists the collections available in the source.
	Collections(ctx context.Context) ([]string, error)

	// Detect classifies a collection from its sample.
	Detect(ctx context.Context, collection string) (*domain.StructureProfile, error)

	// Run processes the named collections and returns one report per collection,
	// in the given order. A collection failure never aborts the others.
	Run(ctx context.Context, collections []string, opts RunOptions) (*domain.RunReport, error)

	// RunAll processes every collection in the source.
	RunAll(ctx context.Context, opts RunOptions) (*domain.RunReport, error)

	// Status returns progress for a collection of the current run.
	Status(ctx context.Context, collection string) (*PipelineStatus, error)

	// Statuses returns progress for every collection of the current run, in work-list order.
	Statuses(ctx context.Context) []PipelineStatus
}

// RunOptions adjusts a single run.
type RunOptions struct {
	// Limit processes only the first n collections when positive.
	Limit int

	// BatchSize overrides the configured batch size when positive.
	BatchSize int

	// CollectionWorkers overrides the configured collection parallelism when positive.
	CollectionWorkers int
}

// Stage is the step a collection is currently in.
type Stage string

// Pipeline stages.
const (
	StagePending   Stage = "pending"
	StageDetecting Stage = "detecting"
	StagePlanning  Stage = "planning"
	StageWriting   Stage = "writing"
	StageDone      Stage = "done"
)

// PipelineStatus represents the progress of one collection.
type PipelineStatus struct {
	Collection string
	Stage      Stage

	// Running indicates the collection is being processed.
	Running bool

	Classification     domain.Classification
	DocumentsProcessed int
	RowsWritten        int
	Skipped            int
	Batches            int

	// Result is set once Stage is StageDone.
	Result domain.CollectionStatus
}
