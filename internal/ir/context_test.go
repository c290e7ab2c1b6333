package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_LoadDialect(t *testing.T) {
	c := NewContext(WithDialects("func", "arith"))

	require.NoError(t, c.LoadDialect("func"))
	require.NoError(t, c.LoadDialect("func"))
	assert.True(t, c.IsLoaded("func"))
	assert.False(t, c.IsLoaded("arith"))
	assert.Equal(t, []string{"func"}, c.LoadedDialects())

	err := c.LoadDialect("gpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"gpu"`)
}

func TestContext_UnregisteredDialects(t *testing.T) {
	c := NewContext(WithUnregisteredDialects())
	require.NoError(t, c.LoadDialect("anything"))
	assert.True(t, c.IsLoaded("anything"))
}

func TestContext_Multithreading(t *testing.T) {
	c := NewContext()
	assert.False(t, c.IsMultithreadingEnabled())

	c.EnableMultithreading(true)
	assert.True(t, c.IsMultithreadingEnabled())

	assert.True(t, NewContext(WithMultithreading(true)).IsMultithreadingEnabled())
}
