// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The pipeline is composed of four steps: the StructureDetector classifies
// a collection, the Flattener expands each nested document into a FlatRow,
// the Denormalizer folds array-index column families back into child rows,
// and the Pipeline drives them batch by batch into a table sink.
//
// Services are pure Go with no CGO.
package services
