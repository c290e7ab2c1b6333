package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/passman/internal/pass"
	"github.com/roach88/passman/internal/transforms"
)

func TestCycles_Empty(t *testing.T) {
	assert.Empty(t, Cycles(nil, nil))
}

func TestCycles_DAG(t *testing.T) {
	entries := []Entry{
		{Name: "a", Pipeline: "b,func.func(c)"},
		{Name: "b", Pipeline: "c"},
		{Name: "c", Pipeline: "print-op-stats"},
	}
	assert.Empty(t, Cycles(nil, entries))
}

func TestCycles_SelfLoop(t *testing.T) {
	cycles := Cycles(nil, []Entry{{Name: "a", Pipeline: "print-op-stats,a"}})
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
	assert.Equal(t, "a -> a", cycles[0].String())
}

func TestCycles_ThroughNestedPipeline(t *testing.T) {
	entries := []Entry{
		{Name: "outer", Pipeline: "func.func(inner)"},
		{Name: "inner", Pipeline: "print-op-stats,builtin.module(outer)"},
	}
	cycles := Cycles(nil, entries)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"inner", "outer", "inner"}, cycles[0].Path)
}

func TestCycles_ThreeNodesWithBystander(t *testing.T) {
	entries := []Entry{
		{Name: "x", Pipeline: "y"},
		{Name: "y", Pipeline: "z,w"},
		{Name: "z", Pipeline: "x"},
		{Name: "w", Pipeline: "print-op-stats"},
	}
	cycles := Cycles(nil, entries)
	require.Len(t, cycles, 1)
	assert.Equal(t, "x -> y -> z -> x", cycles[0].String())
}

func TestCycles_IndependentCyclesSorted(t *testing.T) {
	entries := []Entry{
		{Name: "q", Pipeline: "p"},
		{Name: "p", Pipeline: "q"},
		{Name: "b", Pipeline: "a"},
		{Name: "a", Pipeline: "b"},
	}
	cycles := Cycles(nil, entries)
	require.Len(t, cycles, 2)
	assert.Equal(t, "a -> b -> a", cycles[0].String())
	assert.Equal(t, "p -> q -> p", cycles[1].String())
}

func TestCycles_ThroughRegisteredPipeline(t *testing.T) {
	reg := pass.NewRegistry()
	transforms.RegisterAll(reg)
	require.True(t, reg.RegisterPipeline("registered", "", "func.func(print-op-stats),from-catalog"))

	cycles := Cycles(reg, []Entry{{Name: "from-catalog", Pipeline: "registered"}})
	require.Len(t, cycles, 1)
	assert.Equal(t, "from-catalog -> registered -> from-catalog", cycles[0].String())
}

func TestCycles_IgnoresUnparsableText(t *testing.T) {
	entries := []Entry{
		{Name: "broken", Pipeline: "func.func(a"},
		{Name: "a", Pipeline: "broken"},
	}
	assert.Empty(t, Cycles(nil, entries))
}

func TestValidate_ReportsCycles(t *testing.T) {
	reg := pass.NewRegistry()
	transforms.RegisterAll(reg)
	entries := []Entry{
		{Name: "ping", Pipeline: "pong"},
		{Name: "pong", Pipeline: "func.func(ping)"},
		{Name: "fine", Pipeline: "print-op-stats"},
	}
	Register(reg, entries)

	err := Validate(reg, entries)
	require.Error(t, err)
	assert.Equal(t, "invalid pipelines:\n  cycle: ping -> pong -> ping", err.Error())
}
