// Package messages defines Bubbletea message types for the run monitor.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// Tick is sent on every poll interval.
type Tick struct{}

// StatusesLoaded carries a fresh progress snapshot.
type StatusesLoaded struct {
	Statuses []driving.PipelineStatus
}

// RunFinished is sent when the pipeline run returns.
type RunFinished struct {
	Report *domain.RunReport
	Err    error
}

// Quit is a command to exit the application.
type Quit struct{}
