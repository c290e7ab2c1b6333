package pass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/roach88/passman/internal/ir"
)

// PassManager is the entry point for running a pipeline over an IR tree.
// It owns the root OpPassManager and everything nested under it.
//
// Thread-safety model:
//   - Building the pipeline, Run and Close must not overlap
//   - During Run, worker goroutines only touch their own pass instances
//   - Sinks and instrumentations are called from worker goroutines
type PassManager struct {
	root     *OpPassManager
	ctx      *ir.Context
	registry *Registry
	diag     Sink
	out      Sink
	workers  int
	instr    []*instrSlot
	closed   bool
}

// Option configures a PassManager.
type Option func(*PassManager)

// WithAnchor anchors the root manager on an operation kind. Default AnyOp.
func WithAnchor(anchor string) Option {
	return func(pm *PassManager) {
		pm.root = newOpPassManager(anchor, pm, nil)
	}
}

// WithRegistry resolves pipeline text against r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(pm *PassManager) {
		pm.registry = r
	}
}

// WithDiagnostics routes run diagnostics to sink. Default: dropped.
func WithDiagnostics(sink Sink) Option {
	return func(pm *PassManager) {
		pm.diag = sink
	}
}

// WithOutput routes pass reports to sink. Default: dropped.
func WithOutput(sink Sink) Option {
	return func(pm *PassManager) {
		pm.out = sink
	}
}

// WithWorkers caps the number of workers used when multithreading is enabled.
// Default: runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(pm *PassManager) {
		pm.workers = n
	}
}

// WithInstrumentation adds an instrumentation. Instrumentations run in the
// order they were added.
func WithInstrumentation(i Instrumentation) Option {
	return func(pm *PassManager) {
		pm.instr = append(pm.instr, &instrSlot{i})
	}
}

// instrSlot gives each added instrumentation its own identity, so removal
// never compares instrumentation values.
type instrSlot struct {
	Instrumentation
}

// New creates a PassManager for the given context.
func New(c *ir.Context, opts ...Option) *PassManager {
	pm := &PassManager{
		ctx:     c,
		workers: runtime.GOMAXPROCS(0),
	}
	pm.root = newOpPassManager(AnyOp, pm, nil)
	for _, opt := range opts {
		opt(pm)
	}
	pm.diag = pm.diag.orDiscard()
	pm.out = pm.out.orDiscard()
	if pm.workers < 1 {
		pm.workers = 1
	}
	return pm
}

// Context returns the IR context the manager was created for.
func (pm *PassManager) Context() *ir.Context {
	return pm.ctx
}

// AsOpPassManager returns the root manager.
func (pm *PassManager) AsOpPassManager() *OpPassManager {
	return pm.root
}

// AddPass appends p to the root manager.
func (pm *PassManager) AddPass(p Pass) {
	pm.root.AddPass(p)
}

// NestedUnder returns (creating if absent) a manager nested under the root.
func (pm *PassManager) NestedUnder(anchor string) *OpPassManager {
	return pm.root.NestedUnder(anchor)
}

// AddInstrumentation adds an instrumentation after construction and returns
// a function removing it again. Calling remove more than once is a no-op.
func (pm *PassManager) AddInstrumentation(i Instrumentation) (remove func()) {
	slot := &instrSlot{i}
	pm.instr = append(pm.instr, slot)
	return func() {
		for n, have := range pm.instr {
			if have == slot {
				pm.instr = append(pm.instr[:n:n], pm.instr[n+1:]...)
				return
			}
		}
	}
}

// String returns the textual pipeline of the root manager.
func (pm *PassManager) String() string {
	return pm.root.String()
}

// Run executes the pipeline on op. It returns nil iff every executed pass
// succeeded. Diagnostics describing a failure are written to the diagnostic
// sink before Run returns.
//
// Run checks ctx between passes; cancellation aborts the remainder of the run.
func (pm *PassManager) Run(ctx context.Context, op *ir.Operation) error {
	if pm.closed {
		return &Error{Code: ErrCodeClosed, Message: "pass manager has been closed"}
	}

	slog.Debug("pass manager starting",
		"pipeline", pm.root.String(),
		"op", op.Name().String(),
	)

	diag := pm.diag.serialized()
	fail := func(err error) error {
		reportError(diag, err)
		slog.Debug("pass manager failed", "error", err)
		return err
	}

	if err := pm.verify(op); err != nil {
		return fail(err)
	}
	if err := pm.loadDialects(); err != nil {
		return fail(err)
	}
	if err := pm.initialize(); err != nil {
		return fail(err)
	}

	r := &runner{
		pm:   pm,
		ctx:  ctx,
		diag: diag,
		out:  pm.out.serialized(),
	}
	if err := r.runPipeline(pm.root, op); err != nil {
		return fail(err)
	}

	slog.Debug("pass manager finished", "op", op.Name().String())
	return nil
}

// Close closes every pass instance, worker clones included, exactly once.
// Calling Close again is a no-op. The manager must not be used afterwards.
func (pm *PassManager) Close() {
	if pm.closed {
		return
	}
	pm.closed = true
	pm.root.Clear()
}

// verify checks anchors and pass restrictions before anything runs.
func (pm *PassManager) verify(op *ir.Operation) error {
	if !pm.root.IsOpAgnostic() && pm.root.name != op.Name() {
		return &Error{
			Code: ErrCodeAnchorMismatch,
			Message: fmt.Sprintf("can't run '%s' pass manager on '%s' op",
				pm.root.anchor, op.Name().String()),
			Op: op.Name().String(),
		}
	}
	return verifyRestrictions(pm.root)
}

// verifyRestrictions reports passes restricted to a kind other than the
// anchor of their concretely anchored manager. Inside an op-agnostic manager
// restricted passes are allowed and skipped on non-matching operations.
func verifyRestrictions(opm *OpPassManager) error {
	for _, e := range opm.entries {
		if e.nested != nil {
			if err := verifyRestrictions(e.nested); err != nil {
				return err
			}
			continue
		}
		info := e.pass.Info()
		if opm.IsOpAgnostic() || info.CanScheduleOn(opm.name) {
			continue
		}
		return &Error{
			Code: ErrCodeAnchorMismatch,
			Message: fmt.Sprintf("can't add pass '%s' restricted to '%s' on a pass manager anchored on '%s', did you intend to nest?",
				info.Mnemonic(), info.OpName, opm.anchor),
			Pass: info.Mnemonic(),
			Op:   opm.anchor,
		}
	}
	return nil
}

// loadDialects loads every dialect a pass in the pipeline depends on.
func (pm *PassManager) loadDialects() error {
	if pm.ctx == nil {
		return nil
	}
	var err error
	pm.root.walkPasses(func(e *entry) {
		if err != nil {
			return
		}
		info := e.pass.Info()
		for _, d := range info.Dialects {
			if loadErr := pm.ctx.LoadDialect(d); loadErr != nil {
				err = &Error{
					Code:    ErrCodeDialect,
					Message: fmt.Sprintf("pass '%s' depends on dialect '%s'", info.Mnemonic(), d),
					Pass:    info.Mnemonic(),
					Err:     loadErr,
				}
				return
			}
		}
	})
	return err
}

// initialize initializes every instance that has not been initialized yet.
// All instances are attempted; failures are joined.
func (pm *PassManager) initialize() error {
	return initializeAll(pm.root, pm.ctx)
}

func initializeAll(opm *OpPassManager, c *ir.Context) error {
	var errs []error
	opm.walkPasses(func(e *entry) {
		if e.initialized {
			return
		}
		info := e.pass.Info()
		if err := e.pass.Initialize(c); err != nil {
			slog.Debug("pass initialization failed", "pass", info.Mnemonic(), "error", err)
			errs = append(errs, &Error{
				Code:    ErrCodeInitialize,
				Message: fmt.Sprintf("failed to initialize pass '%s'", info.Mnemonic()),
				Pass:    info.Mnemonic(),
				Err:     err,
			})
			return
		}
		e.initialized = true
	})
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// reportError writes one diagnostic line per *Error in err.
func reportError(diag Sink, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			reportError(diag, e)
		}
		return
	}
	var pe *Error
	if !errors.As(err, &pe) {
		return
	}
	msg := "error: " + pe.Message
	if pe.Err != nil {
		msg += ": " + pe.Err.Error()
	}
	diag(msg + "\n")
}

// workerCount returns how many workers to use for n sibling operations.
func (pm *PassManager) workerCount(n int) int {
	if pm.ctx == nil || !pm.ctx.IsMultithreadingEnabled() {
		return 1
	}
	return min(pm.workers, n)
}
