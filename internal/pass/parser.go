package pass

import (
	"fmt"
	"strings"
)

const errNotWrapped = "expected pass pipeline to be wrapped with the anchor operation type, e.g. 'builtin.module(...)'"

// ParsePipeline replaces the contents of opm with the pipeline in text.
//
// text must have the form `anchor(elements)`. When opm is the root of a
// PassManager its anchor becomes the parsed anchor; a nested manager keeps its
// anchor and text naming a different one is rejected.
//
// Diagnostics are written to sink only. On failure opm is left unchanged.
func ParsePipeline(opm *OpPassManager, text string, sink Sink) error {
	sink = sink.orDiscard()

	nodes, err := parseElements(text)
	if err != nil {
		return report(sink, text, err)
	}
	if len(nodes) != 1 || !nodes[0].nested {
		return report(sink, text, &Error{Code: ErrCodeSyntax, Message: errNotWrapped, Column: 1})
	}
	top := nodes[0]
	if opm.parent != nil && top.name != opm.anchor {
		return report(sink, text, &Error{
			Code: ErrCodeAnchorMismatch,
			Message: fmt.Sprintf("can't parse '%s' pipeline into a pass manager anchored on '%s'",
				top.name, opm.anchor),
			Op:     top.name,
			Column: top.offset + 1,
		})
	}

	staging := newOpPassManager(top.name, opm.owner, opm)
	r := &resolver{reg: opm.registry()}
	if err := r.resolve(top.inner, staging); err != nil {
		staging.Clear()
		return report(sink, text, err)
	}

	opm.Clear()
	opm.anchor = staging.anchor
	opm.name = staging.name
	opm.adopt(staging)
	return nil
}

// AddPipeline parses text as a list of elements relative to opm's anchor and
// appends them after the existing entries.
//
//	opm: builtin.module(func.func(a))
//	text: func.func(b)
//	result: builtin.module(func.func(a),func.func(b))
//
// Diagnostics are written to sink only. On failure opm is left unchanged.
func AddPipeline(opm *OpPassManager, text string, sink Sink) error {
	sink = sink.orDiscard()

	nodes, err := parseElements(text)
	if err != nil {
		return report(sink, text, err)
	}

	staging := newOpPassManager(opm.anchor, opm.owner, opm)
	r := &resolver{reg: opm.registry()}
	if err := r.resolve(nodes, staging); err != nil {
		staging.Clear()
		return report(sink, text, err)
	}
	opm.adopt(staging)
	return nil
}

// report writes err as a located diagnostic and returns it.
//
//	pipeline:1:16: error: 'bogus' does not refer to a registered pass or pass pipeline
//	builtin.module(bogus)
//	               ^
func report(sink Sink, text string, err *Error) error {
	line, col, src := locate(text, err.Column)
	err.Column = col

	var b strings.Builder
	fmt.Fprintf(&b, "pipeline:%d:%d: error: %s", line, col, err.Message)
	if err.Err != nil {
		b.WriteString(": ")
		b.WriteString(err.Err.Error())
	}
	b.WriteByte('\n')
	b.WriteString(src)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", col-1))
	b.WriteString("^\n")
	sink(b.String())
	return err
}

// locate turns a 1-based byte offset into a line, a column on that line and
// the text of the line.
func locate(text string, offset int) (line, col int, src string) {
	if offset < 1 {
		offset = 1
	}
	if offset > len(text)+1 {
		offset = len(text) + 1
	}
	line = 1
	start := 0
	for i := 0; i < offset-1; i++ {
		if text[i] == '\n' {
			line++
			start = i + 1
		}
	}
	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		src = text[start:]
	} else {
		src = text[start : start+end]
	}
	return line, offset - start, src
}

// node is one parsed pipeline element.
type node struct {
	name       string
	options    string
	hasOptions bool
	nested     bool
	inner      []*node
	offset     int // byte offset of name in the parsed text
}

type parser struct {
	text string
	pos  int
}

// parseElements parses a comma separated element list spanning all of text.
func parseElements(text string) ([]*node, *Error) {
	p := &parser{text: text}
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}
	nodes, err := p.elements()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected '%c' after pipeline element", p.peek())
	}
	return nodes, nil
}

func (p *parser) elements() ([]*node, *Error) {
	var nodes []*node
	for {
		n, err := p.element()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		p.skipSpace()
		if p.eof() || p.peek() != ',' {
			return nodes, nil
		}
		p.pos++
	}
}

func (p *parser) element() (*node, *Error) {
	p.skipSpace()
	n := &node{offset: p.pos}
	n.name = p.ident()
	if n.name == "" {
		if p.eof() {
			return nil, p.errorf("expected pass or pipeline name")
		}
		return nil, p.errorf("expected pass or pipeline name, got '%c'", p.peek())
	}
	p.skipSpace()
	if p.eof() {
		return n, nil
	}

	switch p.peek() {
	case '{':
		opts, err := p.options()
		if err != nil {
			return nil, err
		}
		n.options = opts
		n.hasOptions = true
		p.skipSpace()
		if !p.eof() && p.peek() == '(' {
			return nil, p.errorf("pipeline '%s' cannot take options", n.name)
		}
	case '(':
		p.pos++
		n.nested = true
		p.skipSpace()
		if !p.eof() && p.peek() == ')' {
			p.pos++
			return n, nil
		}
		inner, err := p.elements()
		if err != nil {
			return nil, err
		}
		n.inner = inner
		p.skipSpace()
		if p.eof() || p.peek() != ')' {
			return nil, p.errorf("expected ',' or ')' in pipeline '%s'", n.name)
		}
		p.pos++
	}
	return n, nil
}

// options consumes a balanced `{...}` group and returns its contents. Quotes
// are only recognized at the top level of the group.
func (p *parser) options() (string, *Error) {
	open := p.pos
	depth := 0
	var quote byte
	for ; p.pos < len(p.text); p.pos++ {
		c := p.text[p.pos]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case depth == 1 && (c == '"' || c == '\''):
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				p.pos++
				return p.text[open+1 : p.pos-1], nil
			}
		}
	}
	p.pos = open
	return "", p.errorf("missing closing '}' for pass options")
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.text) && isIdentByte(p.text[p.pos]) {
		p.pos++
	}
	return p.text[start:p.pos]
}

func isIdentByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '$':
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.text) }
func (p *parser) peek() byte { return p.text[p.pos] }

func (p *parser) errorf(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeSyntax,
		Message: fmt.Sprintf(format, args...),
		Column:  p.pos + 1,
	}
}

// resolver turns parsed nodes into passes and nested managers.
type resolver struct {
	reg *Registry
	// expanding holds the pipeline mnemonics currently being expanded.
	expanding []string
}

func (r *resolver) resolve(nodes []*node, into *OpPassManager) *Error {
	for _, n := range nodes {
		if n.nested {
			if err := r.resolve(n.inner, into.Nest(n.name)); err != nil {
				return err
			}
			continue
		}
		if err := r.resolveMnemonic(n, into); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveMnemonic(n *node, into *OpPassManager) *Error {
	reg, ok := r.reg.Lookup(n.name)
	if !ok {
		return &Error{
			Code:    ErrCodeUnknownPass,
			Message: fmt.Sprintf("'%s' does not refer to a registered pass or pass pipeline", n.name),
			Pass:    n.name,
			Column:  n.offset + 1,
		}
	}

	if reg.IsPipeline() {
		return r.expand(n, reg, into)
	}

	p := reg.Factory()
	if n.hasOptions {
		if err := p.Info().Options.Parse(n.options); err != nil {
			p.Close()
			return &Error{
				Code:    ErrCodeInvalidOptions,
				Message: fmt.Sprintf("failed to parse options of pass '%s'", n.name),
				Pass:    n.name,
				Column:  n.offset + 1,
				Err:     err,
			}
		}
	}
	if info := p.Info(); !into.IsOpAgnostic() && !info.CanScheduleOn(into.name) {
		p.Close()
		return &Error{
			Code: ErrCodeAnchorMismatch,
			Message: fmt.Sprintf("pass '%s' is restricted to '%s' and cannot be added to a '%s' pipeline",
				n.name, info.OpName, into.anchor),
			Pass:   n.name,
			Op:     into.anchor,
			Column: n.offset + 1,
		}
	}
	into.AddPass(p)
	return nil
}

// expand resolves the elements of a registered pipeline in place of n.
func (r *resolver) expand(n *node, reg Registration, into *OpPassManager) *Error {
	if n.hasOptions {
		return &Error{
			Code:    ErrCodeInvalidOptions,
			Message: fmt.Sprintf("pipeline '%s' does not take options", n.name),
			Pass:    n.name,
			Column:  n.offset + 1,
		}
	}
	for _, name := range r.expanding {
		if name == n.name {
			return &Error{
				Code:    ErrCodeSyntax,
				Message: fmt.Sprintf("pipeline '%s' expands into itself", n.name),
				Pass:    n.name,
				Column:  n.offset + 1,
			}
		}
	}

	nodes, err := parseElements(reg.Pipeline)
	if err == nil {
		r.expanding = append(r.expanding, n.name)
		err = r.resolve(nodes, into)
		r.expanding = r.expanding[:len(r.expanding)-1]
	}
	if err != nil {
		return &Error{
			Code:    err.Code,
			Message: fmt.Sprintf("in pipeline '%s': %s", n.name, err.Message),
			Pass:    n.name,
			Op:      err.Op,
			Column:  n.offset + 1,
			Err:     err.Err,
		}
	}
	return nil
}

// References returns the pass and pipeline mnemonics named by an element
// list, in order of appearance, without resolving them. Anchors of nested
// pipelines are not references.
func References(text string) ([]string, error) {
	nodes, err := parseElements(text)
	if err != nil {
		return nil, err
	}
	var refs []string
	var walk func([]*node)
	walk = func(nodes []*node) {
		for _, n := range nodes {
			if n.nested {
				walk(n.inner)
				continue
			}
			refs = append(refs, n.name)
		}
	}
	walk(nodes)
	return refs, nil
}
