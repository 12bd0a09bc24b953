// Package tui provides the terminal run monitor for tabula.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"context"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// RunFunc starts a pipeline run and blocks until it returns.
type RunFunc func(ctx context.Context) (*domain.RunReport, error)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Pipeline reports per-collection progress.
	Pipeline driving.PipelineService

	// Run executes the run being monitored.
	Run RunFunc
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Pipeline == nil {
		return ErrMissingPipelineService
	}
	if p.Run == nil {
		return ErrMissingRunFunc
	}
	return nil
}
