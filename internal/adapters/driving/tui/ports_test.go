package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestPorts_Validate(t *testing.T) {
	run := func(context.Context) (*domain.RunReport, error) { return nil, nil }

	tests := []struct {
		name  string
		ports *Ports
		want  error
	}{
		{"nil ports", nil, ErrMissingPipelineService},
		{"missing pipeline", &Ports{Run: run}, ErrMissingPipelineService},
		{"missing run", &Ports{Pipeline: &mockPipeline{}}, ErrMissingRunFunc},
		{"complete", &Ports{Pipeline: &mockPipeline{}, Run: run}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ports.Validate())
		})
	}
}
