package pass

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/passman/internal/ir"
)

// trace records pass activity in order. Safe for concurrent use.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// testPass records every Run as "<argument> <op>" in its trace.
type testPass struct {
	Base
	tr      *trace
	failOn  string // sym_name that makes Run fail
	initErr error
	inits   *atomic.Int32
	closes  *atomic.Int32
	level   int
	tag     string
	json    bool
}

func newTestPass(tr *trace, argument, opName string) *testPass {
	p := &testPass{
		Base: NewBase(Info{
			Name:     "TestPass",
			Argument: argument,
			OpName:   opName,
		}),
		tr:     tr,
		inits:  new(atomic.Int32),
		closes: new(atomic.Int32),
	}
	return p
}

// newOptionPass returns a test pass declaring a level and a tag option.
func newOptionPass(tr *trace, argument string) *testPass {
	p := newTestPass(tr, argument, "")
	p.Info().Options.IntVar(&p.level, "level", 0, "verbosity level")
	p.Info().Options.StringVar(&p.tag, "tag", "", "free-form tag")
	return p
}

// newJSONPass returns a test pass declaring a single json option.
func newJSONPass(tr *trace, argument string) *testPass {
	p := newTestPass(tr, argument, "")
	p.Info().Options.BoolVar(&p.json, "json", false, "print as JSON")
	return p
}

func (p *testPass) Initialize(*ir.Context) error {
	p.inits.Add(1)
	return p.initErr
}

func (p *testPass) Run(op *ir.Operation, x *Execution) {
	p.tr.add(p.Info().Mnemonic() + " " + describeOp(op))
	if sym, _ := op.Attr("sym_name"); p.failOn != "" && sym == p.failOn {
		x.Errorf(op, "boom")
	}
}

func (p *testPass) Clone() Pass {
	info := *p.Info()
	info.Options = nil
	cp := &testPass{
		Base:    NewBase(info),
		tr:      p.tr,
		failOn:  p.failOn,
		initErr: p.initErr,
		inits:   p.inits,
		closes:  p.closes,
	}
	return cp
}

func (p *testPass) Close() {
	p.closes.Add(1)
}

// callCounts is the user data of counting external passes.
type callCounts struct {
	construct  atomic.Int32
	destruct   atomic.Int32
	initialize atomic.Int32
	clone      atomic.Int32
	run        atomic.Int32
}

// countingCallbacks returns callbacks that count into a *callCounts user
// data. Clone hands the same counters to the clone.
func countingCallbacks(initErr error, run func(op *ir.Operation, ext *ExternalPass)) ExternalCallbacks {
	return ExternalCallbacks{
		Construct: func(data any) { data.(*callCounts).construct.Add(1) },
		Destruct:  func(data any) { data.(*callCounts).destruct.Add(1) },
		Initialize: func(_ *ir.Context, data any) error {
			data.(*callCounts).initialize.Add(1)
			return initErr
		},
		Clone: func(data any) any {
			data.(*callCounts).clone.Add(1)
			return data
		},
		Run: func(op *ir.Operation, ext *ExternalPass, data any) {
			data.(*callCounts).run.Add(1)
			if run != nil {
				run(op, ext)
			}
		},
	}
}

func function(sym string, body ...string) *ir.Operation {
	fn := ir.NewOperation("func.func").SetAttr("sym_name", sym)
	for _, name := range body {
		fn.Append(ir.NewOperation(name))
	}
	return fn
}

// singleFunctionModule builds
//
//	builtin.module { func.func @foo { arith.addi; func.return } }
func singleFunctionModule() *ir.Operation {
	return ir.NewOperation("builtin.module",
		function("foo", "arith.addi", "func.return"),
	)
}

// nestedModule builds
//
//	builtin.module {
//	  func.func @foo { arith.addi; func.return }
//	  builtin.module { func.func @bar { arith.addf; func.return } }
//	}
func nestedModule() *ir.Operation {
	return ir.NewOperation("builtin.module",
		function("foo", "arith.addi", "func.return"),
		ir.NewOperation("builtin.module",
			function("bar", "arith.addf", "func.return"),
		),
	)
}

// wideModule builds a module holding n functions named f0..f(n-1).
func wideModule(n int) *ir.Operation {
	m := ir.NewOperation("builtin.module")
	for i := range n {
		m.Append(function("f"+string(rune('0'+i)), "func.return"))
	}
	return m
}

// capture is a Sink collecting everything written to it.
type capture struct {
	mu    sync.Mutex
	b     strings.Builder
	calls int
}

func (c *capture) sink() Sink {
	return func(text string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls++
		c.b.WriteString(text)
	}
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.String()
}
