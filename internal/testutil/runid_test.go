package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunID(t *testing.T) {
	gen := NewFixedRunID("run-1")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-1", gen.Generate())
}

func TestFixedRunID_EmptyUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultRunID, NewFixedRunID("").Generate())
}
