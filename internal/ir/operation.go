package ir

import (
	"slices"
	"strings"
)

// Operation is a node of the IR tree.
//
// The pass manager only relies on Name and Children; everything else exists
// for passes that inspect or rewrite the tree.
type Operation struct {
	name     *OperationName
	attrs    map[string]string
	children []*Operation
	parent   *Operation
}

// NewOperation creates an operation with the given children appended in order.
func NewOperation(name string, children ...*Operation) *Operation {
	op := &Operation{name: Name(name)}
	for _, c := range children {
		op.Append(c)
	}
	return op
}

// Name returns the interned kind of the operation.
func (op *Operation) Name() *OperationName {
	return op.name
}

// Is reports whether the operation has kind name.
func (op *Operation) Is(name string) bool {
	return op.name == Name(name)
}

// Children returns the directly nested operations in order.
// The returned slice must not be modified.
func (op *Operation) Children() []*Operation {
	return op.children
}

// Parent returns the enclosing operation, or nil for a root.
func (op *Operation) Parent() *Operation {
	return op.parent
}

// Append adds child as the last nested operation.
// A child already attached elsewhere is detached first.
func (op *Operation) Append(child *Operation) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = op
	op.children = append(op.children, child)
}

// Remove detaches child from op. It reports whether child was found.
func (op *Operation) Remove(child *Operation) bool {
	i := slices.Index(op.children, child)
	if i < 0 {
		return false
	}
	op.children = slices.Delete(op.children, i, i+1)
	child.parent = nil
	return true
}

// Attr returns the attribute value for key.
func (op *Operation) Attr(key string) (string, bool) {
	v, ok := op.attrs[key]
	return v, ok
}

// SetAttr sets an attribute on the operation.
func (op *Operation) SetAttr(key, value string) *Operation {
	if op.attrs == nil {
		op.attrs = make(map[string]string)
	}
	op.attrs[key] = value
	return op
}

// AttrKeys returns the attribute keys in sorted order.
func (op *Operation) AttrKeys() []string {
	keys := make([]string, 0, len(op.attrs))
	for k := range op.attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Walk visits op and every nested operation in pre-order.
// Returning false from fn skips the children of that operation.
func (op *Operation) Walk(fn func(*Operation) bool) {
	if !fn(op) {
		return
	}
	for _, c := range op.children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of op detached from any parent.
func (op *Operation) Clone() *Operation {
	cp := &Operation{name: op.name}
	for k, v := range op.attrs {
		cp.SetAttr(k, v)
	}
	for _, c := range op.children {
		cp.Append(c.Clone())
	}
	return cp
}

// String renders a compact single-line form, e.g. `builtin.module{func.func{func.return}}`.
func (op *Operation) String() string {
	var b strings.Builder
	op.format(&b)
	return b.String()
}

func (op *Operation) format(b *strings.Builder) {
	b.WriteString(op.name.String())
	if sym, ok := op.attrs["sym_name"]; ok {
		b.WriteString(" @")
		b.WriteString(sym)
	}
	if len(op.children) == 0 {
		return
	}
	b.WriteByte('{')
	for i, c := range op.children {
		if i > 0 {
			b.WriteByte(';')
		}
		c.format(b)
	}
	b.WriteByte('}')
}
