package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/passman/internal/ir"
)

func TestNestedUnder_Idempotent(t *testing.T) {
	pm := New(ir.NewContext())
	defer pm.Close()

	first := pm.NestedUnder("builtin.module")
	second := pm.NestedUnder("builtin.module")

	assert.Same(t, first, second)
	assert.Equal(t, 1, pm.AsOpPassManager().Size())
	assert.Same(t, pm.AsOpPassManager(), first.Parent())
	assert.Equal(t, "builtin.module", first.Anchor())
}

func TestNest_AlwaysAppends(t *testing.T) {
	pm := New(ir.NewContext())
	defer pm.Close()
	root := pm.AsOpPassManager()

	a := root.Nest("func.func")
	b := root.Nest("func.func")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, root.Size())
	assert.Same(t, a, root.NestedUnder("func.func"), "NestedUnder returns the first match")
	assert.Equal(t, []*OpPassManager{a, b}, root.Nested())
}

func TestOpPassManager_Passes(t *testing.T) {
	tr := &trace{}
	pm := New(ir.NewContext())
	defer pm.Close()

	p1 := newTestPass(tr, "one", "")
	p2 := newTestPass(tr, "two", "")
	pm.AddPass(p1)
	pm.NestedUnder("func.func")
	pm.AddPass(p2)

	root := pm.AsOpPassManager()
	assert.Equal(t, 3, root.Size())
	assert.Equal(t, []Pass{p1, p2}, root.Passes())
}

func TestOpPassManager_AnchorDefaults(t *testing.T) {
	pm := New(ir.NewContext())
	defer pm.Close()

	assert.Equal(t, AnyOp, pm.AsOpPassManager().Anchor())
	assert.True(t, pm.AsOpPassManager().IsOpAgnostic())
	assert.True(t, pm.NestedUnder("").IsOpAgnostic())
	assert.False(t, pm.NestedUnder("func.func").IsOpAgnostic())
}

func TestOpPassManager_Clear(t *testing.T) {
	tr := &trace{}
	pm := New(ir.NewContext())
	defer pm.Close()

	p := newTestPass(tr, "one", "")
	n := newTestPass(tr, "two", "")
	pm.AddPass(p)
	pm.NestedUnder("func.func").AddPass(n)

	pm.AsOpPassManager().Clear()

	assert.Equal(t, 0, pm.AsOpPassManager().Size())
	assert.Equal(t, int32(1), p.closes.Load())
	assert.Equal(t, int32(1), n.closes.Load())
}

func TestOpPassManager_CloneCopiesStructure(t *testing.T) {
	tr := &trace{}
	pm := New(ir.NewContext())
	defer pm.Close()

	fpm := pm.NestedUnder("builtin.module").NestedUnder("func.func")
	fpm.AddPass(newTestPass(tr, "visit", ""))

	cp := pm.AsOpPassManager().clone()
	defer cp.Clear()

	require.Equal(t, 1, cp.Size())
	assert.Equal(t, pm.String(), cp.String())
	inner := cp.Nested()[0].Nested()[0]
	assert.Same(t, cp.Nested()[0], inner.Parent())
	assert.NotSame(t, fpm.Passes()[0], inner.Passes()[0])
}
