package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Messages(t *testing.T) {
	assert.Equal(t, "tui: pipeline service is required", ErrMissingPipelineService.Error())
	assert.Equal(t, "tui: run function is required", ErrMissingRunFunc.Error())
}
