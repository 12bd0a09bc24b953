// Package domain defines the core entities of the tabula pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ordered tree of fields read from a collection
//   - FlatRow: A single-level key/value view of one document
//   - Table: A batch of denormalized, string-only rows
//   - CollectionReport: The outcome of one collection run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
