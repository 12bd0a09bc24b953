package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// Pipeline coordinates detection, flattening, denormalization and writing
// for every collection of a run.
type Pipeline struct {
	source    driven.DocumentSource
	sink      driven.TableSink
	runStore  driven.RunStore
	reporters []driven.Reporter
	settings  domain.PipelineSettings

	// Status tracking
	mu       sync.RWMutex
	order    []string
	statuses map[string]*driving.PipelineStatus
}

// NewPipeline creates a pipeline orchestrator.
// runStore is optional - if nil, run reports are not persisted.
func NewPipeline(
	source driven.DocumentSource,
	sink driven.TableSink,
	runStore driven.RunStore,
	settings domain.PipelineSettings,
	reporters ...driven.Reporter,
) *Pipeline {
	return &Pipeline{
		source:    source,
		sink:      sink,
		runStore:  runStore,
		reporters: reporters,
		settings:  settings,
		statuses:  make(map[string]*driving.PipelineStatus),
	}
}

// Collections lists the collections available in the source.
func (p *Pipeline) Collections(ctx context.Context) ([]string, error) {
	names, err := p.source.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Detect classifies a collection from its sample.
func (p *Pipeline) Detect(ctx context.Context, collection string) (*domain.StructureProfile, error) {
	return NewStructureDetector(p.source, p.settings.SampleSize).Detect(ctx, collection)
}

// RunAll processes every collection in the source.
func (p *Pipeline) RunAll(ctx context.Context, opts driving.RunOptions) (*domain.RunReport, error) {
	names, err := p.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, names, opts)
}

// Run processes the named collections in parallel and reports them in the given order.
// A failed collection is recorded in its report; the returned error is only set
// when the run itself could not proceed or ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, collections []string, opts driving.RunOptions) (*domain.RunReport, error) {
	settings := p.effectiveSettings(opts)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if opts.Limit > 0 && opts.Limit < len(collections) {
		collections = collections[:opts.Limit]
	}

	available, err := p.Collections(ctx)
	if err != nil {
		return nil, err
	}

	run := &domain.RunReport{
		ID:          uuid.New().String(),
		Source:      p.source.Name(),
		Sink:        p.sink.Name(),
		StartedAt:   time.Now(),
		Collections: make([]domain.CollectionReport, len(collections)),
	}

	p.resetStatus(collections)
	logger.Section(fmt.Sprintf("Run %s: %d collections", run.ID, len(collections)))

	var g errgroup.Group
	g.SetLimit(settings.CollectionWorkers)
	for i, name := range collections {
		i, name := i, name
		g.Go(func() error {
			var report domain.CollectionReport
			if !slices.Contains(available, name) {
				report = domain.CollectionReport{
					Collection: name,
					Status:     domain.StatusFailed,
					Error:      fmt.Sprintf("collection %s: %v", name, domain.ErrNotFound),
					StartedAt:  time.Now(),
				}
				logger.Error("Collection %s does not exist in the source", name)
			} else {
				report = p.runCollection(ctx, name, settings)
			}
			run.Collections[i] = report
			p.finishStatus(report)
			p.notify(ctx, report)
			return nil
		})
	}
	_ = g.Wait()

	run.CompletedAt = time.Now()
	if p.runStore != nil {
		if err := p.runStore.Save(context.WithoutCancel(ctx), *run); err != nil {
			logger.Warn("Failed to save run %s: %v", run.ID, err)
		}
	}

	docs, rows := run.Totals()
	logger.Info("Run %s complete: %d succeeded, %d partial, %d failed (%d documents, %d rows)",
		run.ID, run.Count(domain.StatusSuccess), run.Count(domain.StatusPartial),
		run.Count(domain.StatusFailed), docs, rows)

	if err := ctx.Err(); err != nil {
		return run, err
	}
	return run, nil
}

// Status returns progress for a collection of the current run.
func (p *Pipeline) Status(_ context.Context, collection string) (*driving.PipelineStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if status, ok := p.statuses[collection]; ok {
		// Return a copy to avoid race conditions
		s := *status
		return &s, nil
	}

	// Not part of the current run - return idle status
	return &driving.PipelineStatus{
		Collection: collection,
		Stage:      driving.StagePending,
	}, nil
}

// Statuses returns progress for every collection of the current run.
func (p *Pipeline) Statuses(_ context.Context) []driving.PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]driving.PipelineStatus, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.statuses[name])
	}
	return out
}

// runCollection runs detect, plan and write for one collection.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) runCollection(
	ctx context.Context,
	collection string,
	settings domain.PipelineSettings,
) domain.CollectionReport {
	report := domain.CollectionReport{
		Collection: collection,
		StartedAt:  time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	fail := func(err error) domain.CollectionReport {
		report.Status = domain.StatusFailed
		report.Error = err.Error()
		report.Duration = time.Since(report.StartedAt)
		logger.Error("Collection %s failed: %v", collection, err)
		return report
	}

	logger.Section("Collection: " + collection)

	// 1. Classify from the first K documents
	p.updateStatus(collection, func(s *driving.PipelineStatus) {
		s.Running = true
		s.Stage = driving.StageDetecting
	})
	profile, err := NewStructureDetector(p.source, settings.SampleSize).Detect(ctx, collection)
	if err != nil {
		return fail(sourceError(err))
	}
	report.Profile = *profile
	report.Classification = profile.Classification
	nested := profile.Classification == domain.ClassificationNested
	logger.Info("%s classified as %s (%d of %d sampled documents nested)",
		collection, profile.Classification, profile.NestedDocuments, profile.SampledDocuments)

	convert := convertFunc(CastFlat)
	if nested {
		convert = NewFlattener(settings.MaxDepth).Flatten
	}

	// 2. Plan pass: fix the column set across all batches
	p.updateStatus(collection, func(s *driving.PipelineStatus) {
		s.Stage = driving.StagePlanning
		s.Classification = profile.Classification
	})
	builder := NewPlanBuilder(nested)
	err = p.scan(ctx, collection, settings, convert, func(rows []domain.FlatRow, errs []error, _ []domain.Document) error {
		for i, row := range rows {
			if errs[i] == nil {
				builder.Observe(row)
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	plan := builder.Build()
	report.ColumnsBefore = plan.SourceKeys
	report.ColumnsAfter = len(plan.Columns)
	denorm := NewDenormalizer(plan)
	logger.Debug("%s plan: %d flat keys -> %d columns (%d families)",
		collection, plan.SourceKeys, len(plan.Columns), len(plan.Families))

	// 3. Write pass
	writer, err := p.sink.Open(ctx, collection, plan.Names())
	if err != nil {
		return fail(fmt.Errorf("%w: open: %w", domain.ErrSinkWriteFailed, err))
	}
	p.updateStatus(collection, func(s *driving.PipelineStatus) {
		s.Stage = driving.StageWriting
	})

	hasher := newTableHasher(plan.Names())
	var sinkErr error
	err = p.scan(ctx, collection, settings, convert, func(rows []domain.FlatRow, errs []error, docs []domain.Document) error {
		kept := rows[:0]
		for i, row := range rows {
			if errs[i] != nil {
				report.Skipped++
				logger.Warn("Skipping document %s in %s: %v", docs[i].ID, collection, errors.Unwrap(errs[i]))
				continue
			}
			kept = append(kept, row)
		}

		table, stats := denorm.Denormalize(kept)
		if err := writer.WriteBatch(ctx, table); err != nil {
			sinkErr = fmt.Errorf("%w: batch %d: %w", domain.ErrSinkWriteFailed, report.Batches+1, err)
			return sinkErr
		}

		hasher.write(table)
		report.DocumentsIn += len(docs)
		report.RowsOut += stats.RowsOut
		report.Unplanned += stats.Unplanned
		report.Batches++
		p.updateStatus(collection, func(s *driving.PipelineStatus) {
			s.DocumentsProcessed = report.DocumentsIn
			s.RowsWritten = report.RowsOut
			s.Skipped = report.Skipped
			s.Batches = report.Batches
		})
		logger.Debug("%s batch %d: %d documents -> %d rows", collection, report.Batches, len(docs), stats.RowsOut)
		return nil
	})

	switch {
	case sinkErr != nil && report.Batches > 0:
		// Keep what was written before the failing batch
		output, commitErr := writer.Commit(context.WithoutCancel(ctx))
		if commitErr != nil {
			_ = writer.Abort(context.WithoutCancel(ctx))
			return fail(errors.Join(sinkErr, commitErr))
		}
		report.Output = output
		report.Checksum = hasher.sum()
		report.Status = domain.StatusPartial
		report.Error = sinkErr.Error()
		logger.Error("Collection %s stopped after %d batches: %v", collection, report.Batches, sinkErr)
		return report
	case err != nil:
		_ = writer.Abort(context.WithoutCancel(ctx))
		return fail(err)
	}

	output, err := writer.Commit(ctx)
	if err != nil {
		_ = writer.Abort(context.WithoutCancel(ctx))
		return fail(fmt.Errorf("%w: commit: %w", domain.ErrSinkWriteFailed, err))
	}

	report.Output = output
	report.Checksum = hasher.sum()
	report.Status = domain.StatusSuccess
	if report.Skipped > 0 || report.Unplanned > 0 {
		report.Status = domain.StatusPartial
	}

	logger.Info("%s: %d documents -> %d rows, %d -> %d columns (x%.2f), %d skipped",
		collection, report.DocumentsIn, report.RowsOut, report.ColumnsBefore, report.ColumnsAfter,
		report.ExpansionRatio(), report.Skipped)
	return report
}

// batchFunc handles one converted batch. rows[i] is only valid when errs[i] is nil.
type batchFunc func(rows []domain.FlatRow, errs []error, docs []domain.Document) error

// scan iterates a collection in source order and converts each batch in parallel.
// The next batch is read while the current one is processed.
func (p *Pipeline) scan(
	ctx context.Context,
	collection string,
	settings domain.PipelineSettings,
	convert convertFunc,
	fn batchFunc,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, errs := p.source.Iterate(ctx, collection, settings.BatchSize)
	for batch := range batches {
		rows, docErrs, err := convertBatch(ctx, batch, settings.FlattenWorkers, convert)
		if err != nil {
			return err
		}
		if err := fn(rows, docErrs, batch); err != nil {
			return err
		}
	}

	if err := <-errs; err != nil {
		return sourceError(err)
	}
	return ctx.Err()
}

func (p *Pipeline) effectiveSettings(opts driving.RunOptions) domain.PipelineSettings {
	settings := p.settings
	if opts.BatchSize > 0 {
		settings.BatchSize = opts.BatchSize
	}
	if opts.CollectionWorkers > 0 {
		settings.CollectionWorkers = opts.CollectionWorkers
	}
	return settings
}

func (p *Pipeline) notify(ctx context.Context, report domain.CollectionReport) {
	for _, r := range p.reporters {
		if err := r.Report(ctx, report); err != nil {
			logger.Warn("Reporter failed for %s: %v", report.Collection, err)
		}
	}
}

func (p *Pipeline) resetStatus(collections []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.order = append([]string(nil), collections...)
	p.statuses = make(map[string]*driving.PipelineStatus, len(collections))
	for _, name := range collections {
		p.statuses[name] = &driving.PipelineStatus{
			Collection: name,
			Stage:      driving.StagePending,
		}
	}
}

func (p *Pipeline) updateStatus(collection string, fn func(s *driving.PipelineStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.statuses[collection]; ok {
		fn(s)
	}
}

func (p *Pipeline) finishStatus(report domain.CollectionReport) {
	p.updateStatus(report.Collection, func(s *driving.PipelineStatus) {
		s.Running = false
		s.Stage = driving.StageDone
		s.Result = report.Status
		s.Classification = report.Classification
		s.DocumentsProcessed = report.DocumentsIn
		s.RowsWritten = report.RowsOut
		s.Skipped = report.Skipped
		s.Batches = report.Batches
	})
}

// sourceError marks err as a source failure unless it already is one
// or is a cancellation.
func sourceError(err error) error {
	if errors.Is(err, domain.ErrSourceUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
}

// tableHasher digests emitted tables so repeated runs can be compared.
type tableHasher struct {
	h *xxh3.Hasher
}

func newTableHasher(columns []string) *tableHasher {
	t := &tableHasher{h: xxh3.New()}
	t.writeRecord(columns)
	return t
}

func (t *tableHasher) write(table *domain.Table) {
	for _, row := range table.Rows {
		t.writeRecord(row)
	}
}

func (t *tableHasher) writeRecord(values []string) {
	for _, v := range values {
		_, _ = t.h.WriteString(v)
		_, _ = t.h.Write([]byte{0x1f})
	}
	_, _ = t.h.Write([]byte{0x1e})
}

func (t *tableHasher) sum() string {
	return fmt.Sprintf("%016x", t.h.Sum64())
}
