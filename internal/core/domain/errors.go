package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or sink kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// Document Errors.
	// These are recoverable: the document is skipped and the run continues.

	// ErrStructureTooDeep indicates a document nests beyond the configured depth limit.
	ErrStructureTooDeep = errors.New("structure too deep")

	// ErrUnstringifiableValue indicates a leaf value outside the supported scalar kinds.
	ErrUnstringifiableValue = errors.New("unstringifiable value")

	// ErrKeyCollision indicates two distinct leaves of one document produced the same flat key.
	ErrKeyCollision = errors.New("flat key collision")

	// Collection Errors.

	// ErrSourceUnavailable indicates the document store could not be read.
	// Fatal for the affected collection only.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSinkWriteFailed indicates the table sink rejected a write.
	// Aborts the remaining batches of the affected collection.
	ErrSinkWriteFailed = errors.New("sink write failed")
)

// DocumentError reports a document that was skipped, with the reason.
type DocumentError struct {
	DocumentID string
	Err        error
}

// Error implements error.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.DocumentID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// IsDocumentError returns true if err is recoverable at document level.
func IsDocumentError(err error) bool {
	return errors.Is(err, ErrStructureTooDeep) ||
		errors.Is(err, ErrUnstringifiableValue) ||
		errors.Is(err, ErrKeyCollision)
}
