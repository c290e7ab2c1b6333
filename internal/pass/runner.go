package pass

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/passman/internal/ir"
)

// runner carries the state shared by one PassManager.Run call.
type runner struct {
	pm   *PassManager
	ctx  context.Context
	diag Sink
	out  Sink
}

// runPipeline runs the entries of opm, in order, on op.
func (r *runner) runPipeline(opm *OpPassManager, op *ir.Operation) error {
	for _, e := range opm.entries {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}
		if e.nested != nil {
			if err := r.runNested(e, op); err != nil {
				return err
			}
			continue
		}
		if err := r.runPass(opm, e.pass, op); err != nil {
			return err
		}
	}
	return nil
}

// runPass runs a single pass on op. Restricted passes inside an op-agnostic
// manager are skipped on operations of other kinds.
func (r *runner) runPass(opm *OpPassManager, p Pass, op *ir.Operation) error {
	info := p.Info()
	if !info.CanScheduleOn(op.Name()) {
		if opm.IsOpAgnostic() {
			return nil
		}
		return &Error{
			Code:    ErrCodeAnchorMismatch,
			Message: fmt.Sprintf("pass '%s' cannot run on '%s'", info.Mnemonic(), op.Name().String()),
			Pass:    info.Mnemonic(),
			Op:      op.Name().String(),
		}
	}

	for _, in := range r.pm.instr {
		in.BeforePass(p, op)
	}

	x := &Execution{c: r.pm.ctx, diag: r.diag, out: r.out}
	p.Run(op, x)

	if x.Failed() {
		for _, in := range r.pm.instr {
			in.AfterPassFailed(p, op)
		}
		slog.Debug("pass failed", "pass", info.Mnemonic(), "op", op.Name().String())
		return &Error{
			Code:    ErrCodePassFailed,
			Message: fmt.Sprintf("pass '%s' failed on %s", info.Mnemonic(), describeOp(op)),
			Pass:    info.Mnemonic(),
			Op:      op.Name().String(),
		}
	}

	for _, in := range r.pm.instr {
		in.AfterPass(p, op)
	}
	return nil
}

// runNested runs the nested manager of e on every direct child of op whose
// kind matches its anchor.
func (r *runner) runNested(e *entry, op *ir.Operation) error {
	var targets []*ir.Operation
	for _, child := range op.Children() {
		if e.nested.matches(child) {
			targets = append(targets, child)
		}
	}

	workers := r.pm.workerCount(len(targets))
	if workers <= 1 {
		for _, child := range targets {
			if err := r.runPipeline(e.nested, child); err != nil {
				return err
			}
		}
		return nil
	}

	instances, err := r.instancesFor(e, workers)
	if err != nil {
		return err
	}
	return r.runParallel(instances, targets)
}

// instancesFor returns one manager per worker. Worker 0 uses the nested
// manager itself; the others get cached clones, initialized before first use.
// Clones taken before the nested manager was last modified are discarded.
func (r *runner) instancesFor(e *entry, workers int) ([]*OpPassManager, error) {
	if e.clonesGen != e.nested.gen {
		e.dropClones()
		e.clonesGen = e.nested.gen
	}
	for len(e.clones) < workers-1 {
		e.clones = append(e.clones, e.nested.clone())
	}
	instances := make([]*OpPassManager, 0, workers)
	instances = append(instances, e.nested)
	instances = append(instances, e.clones[:workers-1]...)
	for _, inst := range instances[1:] {
		if err := initializeAll(inst, r.pm.ctx); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

// runParallel hands targets to workers in order. Once a worker fails no new
// targets are started; the error of the lowest failing worker is returned.
func (r *runner) runParallel(instances []*OpPassManager, targets []*ir.Operation) error {
	var (
		next   atomic.Int64
		failed atomic.Bool
		wg     sync.WaitGroup
	)
	errs := make([]error, len(instances))

	for w, inst := range instances {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !failed.Load() {
				i := int(next.Add(1)) - 1
				if i >= len(targets) {
					return
				}
				if err := r.runPipeline(inst, targets[i]); err != nil {
					errs[w] = err
					failed.Store(true)
					return
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// describeOp renders op for diagnostics, e.g. "'func.func @foo'".
func describeOp(op *ir.Operation) string {
	loc := op.Name().String()
	if sym, ok := op.Attr("sym_name"); ok {
		loc += " @" + sym
	}
	return "'" + loc + "'"
}
