package domain

import "time"

// CollectionStatus is the outcome of processing one collection.
type CollectionStatus string

// Collection statuses.
const (
	StatusSuccess CollectionStatus = "success"
	StatusPartial CollectionStatus = "partial"
	StatusFailed  CollectionStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s CollectionStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// CollectionReport is the result of running the pipeline over one collection.
type CollectionReport struct {
	Collection     string
	Classification Classification
	Profile        StructureProfile
	Status         CollectionStatus

	// Error holds the failure reason when Status is not success.
	Error string

	DocumentsIn   int
	RowsOut       int
	ColumnsBefore int
	ColumnsAfter  int

	// Skipped counts documents dropped with a document-level error.
	Skipped int

	// Unplanned counts flat keys seen while writing that were absent from the column plan.
	Unplanned int

	Batches int

	// Checksum is an xxh3 digest over the emitted columns and rows, hex encoded.
	Checksum string

	// Output locates the written table (file path or table name).
	Output string

	StartedAt time.Time
	Duration  time.Duration
}

// ExpansionRatio returns rows out per document in.
func (r CollectionReport) ExpansionRatio() float64 {
	if r.DocumentsIn == 0 {
		return 0
	}
	return float64(r.RowsOut) / float64(r.DocumentsIn)
}

// ColumnReduction returns the fraction of columns removed by denormalization.
func (r CollectionReport) ColumnReduction() float64 {
	if r.ColumnsBefore == 0 {
		return 0
	}
	return float64(r.ColumnsBefore-r.ColumnsAfter) / float64(r.ColumnsBefore)
}

// RunReport aggregates the reports of one pipeline run.
// Collections keep the work-list order.
type RunReport struct {
	ID          string
	Source      string
	Sink        string
	StartedAt   time.Time
	CompletedAt time.Time
	Collections []CollectionReport
}

// Count returns the number of collections with the given status.
func (r RunReport) Count(status CollectionStatus) int {
	n := 0
	for _, c := range r.Collections {
		if c.Status == status {
			n++
		}
	}
	return n
}

// SuccessRate returns the share of collections that did not fail.
func (r RunReport) SuccessRate() float64 {
	if len(r.Collections) == 0 {
		return 0
	}
	return float64(len(r.Collections)-r.Count(StatusFailed)) / float64(len(r.Collections))
}

// Failed returns the names of failed collections.
func (r RunReport) Failed() []string {
	var names []string
	for _, c := range r.Collections {
		if c.Status == StatusFailed {
			names = append(names, c.Collection)
		}
	}
	return names
}

// Totals returns the summed documents in and rows out.
func (r RunReport) Totals() (documents, rows int) {
	for _, c := range r.Collections {
		documents += c.DocumentsIn
		rows += c.RowsOut
	}
	return documents, rows
}
