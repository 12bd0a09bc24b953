package tui

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("tui: pipeline service is required")

// ErrMissingRunFunc is returned when no run function is provided.
var ErrMissingRunFunc = errors.New("tui: run function is required")
