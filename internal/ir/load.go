package ir

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// opDocument is the YAML shape of an operation:
//
//	op: builtin.module
//	body:
//	  - op: func.func
//	    attrs: {sym_name: foo}
//	    body:
//	      - op: arith.addi
//	      - op: func.return
type opDocument struct {
	Op    string            `yaml:"op"`
	Attrs map[string]string `yaml:"attrs,omitempty"`
	Body  []*opDocument     `yaml:"body,omitempty"`
}

// Decode reads a single YAML operation document.
func Decode(r io.Reader) (*Operation, error) {
	var doc opDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	return doc.build("op")
}

// Parse decodes an operation from YAML source text.
func Parse(src string) (*Operation, error) {
	return Decode(bytes.NewBufferString(src))
}

// LoadFile decodes the operation stored in a YAML file.
func LoadFile(path string) (*Operation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open IR file: %w", err)
	}
	defer f.Close()

	op, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return op, nil
}

// Marshal encodes op back into the YAML document form.
func Marshal(op *Operation) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toDocument(op)); err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *opDocument) build(path string) (*Operation, error) {
	if d == nil {
		return nil, fmt.Errorf("%s: empty operation", path)
	}
	if d.Op == "" {
		return nil, fmt.Errorf("%s: missing 'op' field", path)
	}
	op := NewOperation(d.Op)
	for k, v := range d.Attrs {
		op.SetAttr(k, v)
	}
	for i, child := range d.Body {
		c, err := child.build(fmt.Sprintf("%s.body[%d]", path, i))
		if err != nil {
			return nil, err
		}
		op.Append(c)
	}
	return op, nil
}

func toDocument(op *Operation) *opDocument {
	d := &opDocument{Op: op.Name().String()}
	if len(op.attrs) > 0 {
		d.Attrs = make(map[string]string, len(op.attrs))
		for k, v := range op.attrs {
			d.Attrs[k] = v
		}
	}
	for _, c := range op.children {
		d.Body = append(d.Body, toDocument(c))
	}
	return d
}
