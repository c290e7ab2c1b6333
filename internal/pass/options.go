package pass

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// Options is the declared option set of a pass.
//
// Options are printed in declaration order as `key=value` pairs separated by
// spaces, which is also the form Parse accepts.
type Options struct {
	fs *pflag.FlagSet
}

// NewOptions creates an empty option set for the named pass.
func NewOptions(name string) *Options {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return &Options{fs: fs}
}

// BoolVar declares a boolean option bound to p.
func (o *Options) BoolVar(p *bool, name string, value bool, usage string) {
	o.fs.BoolVar(p, name, value, usage)
}

// StringVar declares a string option bound to p.
func (o *Options) StringVar(p *string, name, value, usage string) {
	o.fs.StringVar(p, name, value, usage)
}

// IntVar declares an integer option bound to p.
func (o *Options) IntVar(p *int, name string, value int, usage string) {
	o.fs.IntVar(p, name, value, usage)
}

// Len returns the number of declared options.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	n := 0
	o.fs.VisitAll(func(*pflag.Flag) { n++ })
	return n
}

// Get returns the current textual value of an option.
func (o *Options) Get(name string) (string, bool) {
	if o == nil {
		return "", false
	}
	f := o.fs.Lookup(name)
	if f == nil {
		return "", false
	}
	return f.Value.String(), true
}

// Parse applies a `key=value key2=value2` option string. A bare key sets a
// boolean option to true. Values may be wrapped in quotes or braces.
func (o *Options) Parse(text string) error {
	tokens, err := splitOptions(text)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	if o == nil {
		return fmt.Errorf("pass does not declare any options")
	}
	args := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		args = append(args, "--"+tok)
	}
	if err := o.fs.Parse(args); err != nil {
		return err
	}
	if rest := o.fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected option text %q", strings.Join(rest, " "))
	}
	return nil
}

// CopyFrom sets every option also declared in src to src's value.
// Used when cloning a pass.
func (o *Options) CopyFrom(src *Options) error {
	if o == nil || src == nil {
		return nil
	}
	var err error
	src.fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || o.fs.Lookup(f.Name) == nil {
			return
		}
		err = o.fs.Set(f.Name, f.Value.String())
	})
	return err
}

// print writes `key=value` pairs in declaration order.
func (o *Options) print(sink Sink) {
	first := true
	o.fs.VisitAll(func(f *pflag.Flag) {
		if !first {
			sink(" ")
		}
		first = false
		sink(f.Name)
		sink("=")
		sink(quoteOptionValue(f.Value.String()))
	})
}

// String returns the printed option set, e.g. "{json=false}", or "" when no
// options are declared.
func (o *Options) String() string {
	if o.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	o.print(func(s string) { b.WriteString(s) })
	b.WriteByte('}')
	return b.String()
}

// quoteOptionValue picks a quote the value does not contain, falling back to
// braces, inside which quotes have no meaning.
func quoteOptionValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n{},()'\"") {
		return v
	}
	switch {
	case !strings.Contains(v, `"`):
		return `"` + v + `"`
	case !strings.Contains(v, "'"):
		return "'" + v + "'"
	default:
		return "{" + v + "}"
	}
}

// splitOptions splits option text on whitespace outside quotes and braces,
// stripping one level of quoting from each value. Quotes are only recognized
// outside braces.
func splitOptions(text string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  byte
		depth  int
		inTok  bool
	)
	flush := func() {
		if inTok {
			tokens = append(tokens, unquoteOptionValue(cur.String()))
		}
		cur.Reset()
		inTok = false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case depth == 0 && (c == '"' || c == '\''):
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced '}' in options %q", text)
			}
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			flush()
			continue
		}
		cur.WriteByte(c)
		inTok = true
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in options %q", text)
	}
	if depth != 0 {
		return nil, fmt.Errorf("missing closing '}' in options %q", text)
	}
	flush()
	return tokens, nil
}

// unquoteOptionValue strips quotes or braces around the value of key=value.
func unquoteOptionValue(tok string) string {
	key, val, ok := strings.Cut(tok, "=")
	if !ok || len(val) < 2 {
		return tok
	}
	first, last := val[0], val[len(val)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '{' && last == '}') {
		val = val[1 : len(val)-1]
	}
	return key + "=" + val
}
