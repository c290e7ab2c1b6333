package pass

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/passman/internal/ir"
)

// TypeID is a process-unique pass identity.
type TypeID uint64

var lastTypeID atomic.Uint64

// NewTypeID allocates a fresh TypeID. Safe for concurrent use.
func NewTypeID() TypeID {
	return TypeID(lastTypeID.Add(1))
}

// Info describes a pass. It is owned by the pass instance.
type Info struct {
	// ID identifies the pass type; clones share it.
	ID TypeID

	// Name is the display name, e.g. "PrintOpStats".
	Name string

	// Argument is the mnemonic used in pipeline text, e.g. "print-op-stats".
	Argument string

	// Description is a one-line human description.
	Description string

	// OpName restricts the pass to one operation kind. Empty means any.
	OpName string

	// Dialects lists the dialects Run may assume are loaded.
	Dialects []string

	// Options holds the declared pass options. May be nil.
	Options *Options
}

// CanScheduleOn reports whether the pass may run on operations of kind name.
func (i *Info) CanScheduleOn(name *ir.OperationName) bool {
	return i.OpName == "" || i.OpName == name.String()
}

// Mnemonic returns Argument, or Name for passes without one.
func (i *Info) Mnemonic() string {
	if i.Argument != "" {
		return i.Argument
	}
	return i.Name
}

// Pass is a unit of work scheduled by an OpPassManager.
//
// Lifecycle: a pass is created (or cloned), initialized at most once before
// its first Run, run any number of times, and closed exactly once by the
// manager that owns it.
type Pass interface {
	// Info returns the pass description. The same pointer must be returned
	// on every call.
	Info() *Info

	// Initialize prepares the instance before its first run.
	// Returning an error fails the run; Run is not invoked.
	Initialize(c *ir.Context) error

	// Run executes the pass on op. Failure is reported through
	// x.SignalFailure; there is no return value.
	Run(op *ir.Operation, x *Execution)

	// Clone returns an independent instance for a parallel worker.
	Clone() Pass

	// Close releases the instance. Called exactly once.
	Close()
}

// Base provides default Info, Initialize and Close for native passes.
// Embed it and implement Run and Clone.
type Base struct {
	info Info
}

// NewBase creates a Base from info. A zero ID is replaced with a fresh one.
func NewBase(info Info) Base {
	if info.ID == 0 {
		info.ID = NewTypeID()
	}
	if info.Options == nil {
		info.Options = NewOptions(info.Mnemonic())
	}
	return Base{info: info}
}

// Info implements Pass.
func (b *Base) Info() *Info { return &b.info }

// Initialize implements Pass.
func (b *Base) Initialize(*ir.Context) error { return nil }

// Close implements Pass.
func (b *Base) Close() {}

// Execution is the per-invocation handle handed to Pass.Run.
type Execution struct {
	c      *ir.Context
	diag   Sink
	out    Sink
	mu     sync.Mutex
	failed bool
}

// Context returns the IR context of the run.
func (x *Execution) Context() *ir.Context { return x.c }

// Output returns the sink for pass reports (statistics, dumps).
func (x *Execution) Output() Sink { return x.out }

// SignalFailure marks the current pass invocation as failed.
func (x *Execution) SignalFailure() {
	x.mu.Lock()
	x.failed = true
	x.mu.Unlock()
}

// Failed reports whether SignalFailure was called.
func (x *Execution) Failed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.failed
}

// EmitError reports a diagnostic about op through the diagnostic sink.
// It does not fail the pass by itself.
func (x *Execution) EmitError(op *ir.Operation, msg string) {
	x.diag(formatOpDiagnostic(op, "error", msg))
}

// Errorf emits an error about op and signals failure.
func (x *Execution) Errorf(op *ir.Operation, format string, args ...any) {
	x.EmitError(op, fmt.Sprintf(format, args...))
	x.SignalFailure()
}

func formatOpDiagnostic(op *ir.Operation, severity, msg string) string {
	return fmt.Sprintf("%s: %s: %s\n", describeOp(op), severity, msg)
}
