package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

// Recorder is a pass.Instrumentation writing one execution record per
// completed pass invocation. Seq numbers start at 1 and follow completion
// order. Write errors do not fail the run; the first one is kept for Err.
//
// Thread-safety: hooks may be called from concurrent workers.
type Recorder struct {
	ctx   context.Context
	store *Store
	runID string

	mu  sync.Mutex
	seq int64
	err error
}

var _ pass.Instrumentation = (*Recorder)(nil)

// NewRecorder creates a recorder for an existing run.
func NewRecorder(ctx context.Context, s *Store, runID string) *Recorder {
	return &Recorder{ctx: ctx, store: s, runID: runID}
}

// BeforePass implements pass.Instrumentation.
func (r *Recorder) BeforePass(pass.Pass, *ir.Operation) {}

// AfterPass implements pass.Instrumentation.
func (r *Recorder) AfterPass(p pass.Pass, op *ir.Operation) {
	r.record(p, op, ExecOK)
}

// AfterPassFailed implements pass.Instrumentation.
func (r *Recorder) AfterPassFailed(p pass.Pass, op *ir.Operation) {
	r.record(p, op, ExecFailed)
}

func (r *Recorder) record(p pass.Pass, op *ir.Operation, status ExecStatus) {
	attrs := make(map[string]string)
	for _, k := range op.AttrKeys() {
		attrs[k], _ = op.Attr(k)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	err := r.store.WriteExecution(r.ctx, Execution{
		RunID:  r.runID,
		Seq:    r.seq,
		Pass:   p.Info().Mnemonic(),
		Op:     op.Name().String(),
		Attrs:  attrs,
		Status: status,
	})
	if err != nil {
		slog.Warn("failed to record pass execution", "run", r.runID, "seq", r.seq, "error", err)
		if r.err == nil {
			r.err = err
		}
	}
}

// Count returns the number of executions recorded so far.
func (r *Recorder) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Err returns the first write error, or nil.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// RecordRun runs pm on op inside a recorded run. The run record is created
// with a fresh id from gen and closed with the outcome of the run.
// The returned error is the run error joined with any recording error.
func RecordRun(ctx context.Context, s *Store, gen IDGenerator, pm *pass.PassManager, op *ir.Operation) (string, error) {
	id := gen.Generate()
	if err := s.BeginRun(ctx, Run{
		ID:       id,
		Pipeline: pm.String(),
		RootOp:   op.Name().String(),
	}); err != nil {
		return id, err
	}

	rec := NewRecorder(ctx, s, id)
	remove := pm.AddInstrumentation(rec)
	runErr := pm.Run(ctx, op)
	remove()

	if err := s.EndRun(ctx, id, runErr); err != nil {
		return id, errors.Join(runErr, err)
	}
	if recErr := rec.Err(); recErr != nil {
		return id, errors.Join(runErr, recErr)
	}
	return id, runErr
}
