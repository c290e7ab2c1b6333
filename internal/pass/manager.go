package pass

import (
	"strings"

	"github.com/roach88/passman/internal/ir"
)

// AnyOp is the anchor of an op-agnostic OpPassManager.
const AnyOp = "any"

// entry is one element of an OpPassManager: either a pass or a nested manager.
type entry struct {
	pass        Pass
	initialized bool

	nested *OpPassManager
	// clones are per-worker copies of nested, created on demand for parallel
	// execution and reused across runs while nested.gen equals clonesGen.
	// Worker 0 always uses nested itself.
	clones    []*OpPassManager
	clonesGen uint64
}

// OpPassManager is an ordered list of passes and nested managers anchored to
// one operation kind. It owns everything added to it.
//
// INVARIANTS:
//   - entries order is execution order
//   - an entry is owned by exactly one OpPassManager
//   - nested managers are only reachable through their parent
type OpPassManager struct {
	anchor  string
	name    *ir.OperationName // interned anchor; nil when op-agnostic
	entries []*entry
	owner   *PassManager
	parent  *OpPassManager
	// gen changes whenever this manager or anything nested under it is
	// modified.
	gen uint64
}

func newOpPassManager(anchor string, owner *PassManager, parent *OpPassManager) *OpPassManager {
	if anchor == "" {
		anchor = AnyOp
	}
	opm := &OpPassManager{anchor: anchor, owner: owner, parent: parent}
	if anchor != AnyOp {
		opm.name = ir.Name(anchor)
	}
	return opm
}

// Anchor returns the operation kind this manager is scoped to.
func (opm *OpPassManager) Anchor() string {
	return opm.anchor
}

// IsOpAgnostic reports whether the manager is anchored on AnyOp.
func (opm *OpPassManager) IsOpAgnostic() bool {
	return opm.name == nil
}

// Parent returns the enclosing manager, or nil for the root.
func (opm *OpPassManager) Parent() *OpPassManager {
	return opm.parent
}

// AddPass appends p and takes ownership of it. The caller must not use p
// afterwards except through this manager.
//
// Restrictions are not checked here; a pass restricted to another kind is
// reported when the pipeline is run.
func (opm *OpPassManager) AddPass(p Pass) {
	opm.entries = append(opm.entries, &entry{pass: p})
	opm.touch()
}

// Nest appends a new nested manager anchored at anchor and returns it.
func (opm *OpPassManager) Nest(anchor string) *OpPassManager {
	child := newOpPassManager(anchor, opm.owner, opm)
	opm.entries = append(opm.entries, &entry{nested: child})
	opm.touch()
	return child
}

// NestedUnder returns the first nested manager anchored at anchor, creating
// one at the end if none exists. Calling it twice returns the same manager.
func (opm *OpPassManager) NestedUnder(anchor string) *OpPassManager {
	if anchor == "" {
		anchor = AnyOp
	}
	for _, e := range opm.entries {
		if e.nested != nil && e.nested.anchor == anchor {
			return e.nested
		}
	}
	return opm.Nest(anchor)
}

// Size returns the number of entries, passes and nested managers alike.
func (opm *OpPassManager) Size() int {
	return len(opm.entries)
}

// Passes returns the passes attached directly to this manager, in order.
func (opm *OpPassManager) Passes() []Pass {
	var out []Pass
	for _, e := range opm.entries {
		if e.pass != nil {
			out = append(out, e.pass)
		}
	}
	return out
}

// Nested returns the nested managers, in order.
func (opm *OpPassManager) Nested() []*OpPassManager {
	var out []*OpPassManager
	for _, e := range opm.entries {
		if e.nested != nil {
			out = append(out, e.nested)
		}
	}
	return out
}

// Clear closes and removes every entry.
func (opm *OpPassManager) Clear() {
	opm.clearEntries()
	opm.touch()
}

func (opm *OpPassManager) clearEntries() {
	for _, e := range opm.entries {
		e.close()
	}
	opm.entries = nil
}

// touch marks opm and every enclosing manager as modified.
func (opm *OpPassManager) touch() {
	for o := opm; o != nil; o = o.parent {
		o.gen++
	}
}

// String returns the textual pipeline.
func (opm *OpPassManager) String() string {
	var b strings.Builder
	PrintPipeline(opm, func(s string) { b.WriteString(s) })
	return b.String()
}

// matches reports whether a nested manager should run on op.
func (opm *OpPassManager) matches(op *ir.Operation) bool {
	return opm.name == nil || opm.name == op.Name()
}

// registry returns the registry used to resolve pipeline text.
func (opm *OpPassManager) registry() *Registry {
	if opm.owner != nil && opm.owner.registry != nil {
		return opm.owner.registry
	}
	return DefaultRegistry()
}

// adopt moves the entries of src to the end of opm, re-parenting nested
// managers. src is left empty.
func (opm *OpPassManager) adopt(src *OpPassManager) {
	for _, e := range src.entries {
		if e.nested != nil {
			e.nested.parent = opm
		}
		opm.entries = append(opm.entries, e)
	}
	src.entries = nil
	opm.touch()
}

// clone returns a copy with every pass cloned. Nothing in the copy is
// initialized and no worker clones are carried over.
func (opm *OpPassManager) clone() *OpPassManager {
	cp := newOpPassManager(opm.anchor, opm.owner, opm.parent)
	for _, e := range opm.entries {
		if e.nested != nil {
			child := e.nested.clone()
			child.parent = cp
			cp.entries = append(cp.entries, &entry{nested: child})
			continue
		}
		cp.entries = append(cp.entries, &entry{pass: e.pass.Clone()})
	}
	return cp
}

// walkPasses calls fn for every pass instance reachable from opm, worker
// clones included.
func (opm *OpPassManager) walkPasses(fn func(*entry)) {
	for _, e := range opm.entries {
		if e.pass != nil {
			fn(e)
			continue
		}
		e.nested.walkPasses(fn)
		for _, c := range e.clones {
			c.walkPasses(fn)
		}
	}
}

func (e *entry) close() {
	if e.pass != nil {
		e.pass.Close()
		return
	}
	e.nested.clearEntries()
	e.dropClones()
}

// dropClones closes the cached worker clones.
func (e *entry) dropClones() {
	for _, c := range e.clones {
		c.clearEntries()
	}
	e.clones = nil
}
