package harness

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
	"github.com/roach88/passman/internal/store"
	"github.com/roach88/passman/internal/testutil"
	"github.com/roach88/passman/internal/transforms"
)

// capture records sink calls from concurrent workers into one transcript.
type capture struct {
	clock *testutil.Clock
	mu    sync.Mutex
	evs   []Event
}

func (c *capture) sink(s Stream) pass.Sink {
	return func(text string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.evs = append(c.evs, Event{Seq: c.clock.Next(), Stream: s, Text: text})
	}
}

// Run executes a scenario against the passes of the transforms package.
func Run(s *Scenario) (*Result, error) {
	reg := pass.NewRegistry()
	transforms.RegisterAll(reg)
	return RunWithRegistry(s, reg)
}

// RunWithRegistry executes a scenario, resolving its pipeline against reg.
//
// Each run uses a fresh in-memory store and a fixed run id, so repeated runs
// of one scenario produce identical results. The returned error reports
// harness failures (unreadable input, store errors); a pipeline that fails
// to parse or run is an outcome checked against the expectations.
func RunWithRegistry(s *Scenario, reg *pass.Registry) (*Result, error) {
	root, err := s.loadIR()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rec := &capture{clock: testutil.NewClock()}
	c := ir.NewContext(ir.WithUnregisteredDialects(), ir.WithMultithreading(s.Threads > 1))
	opts := []pass.Option{
		pass.WithRegistry(reg),
		pass.WithDiagnostics(rec.sink(StreamDiagnostic)),
		pass.WithOutput(rec.sink(StreamOutput)),
	}
	if s.Threads > 0 {
		opts = append(opts, pass.WithWorkers(s.Threads))
	}
	pm := pass.New(c, opts...)
	defer pm.Close()

	ctx := context.Background()
	result := NewResult()

	runErr := pass.ParsePipeline(pm.AsOpPassManager(), s.Pipeline, rec.sink(StreamDiagnostic))
	if runErr == nil {
		result.Pipeline = pm.String()
		var runID string
		runID, runErr = store.RecordRun(ctx, st, testutil.NewFixedRunID(s.Name), pm, root)
		trace, err := st.ReadExecutions(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: read trace: %w", s.Name, err)
		}
		result.Trace = trace
	}
	result.ErrorCode = string(pass.CodeOf(runErr))

	rec.mu.Lock()
	result.Transcript = rec.evs
	rec.mu.Unlock()

	check(s.Expect, runErr, result)
	return result, nil
}

func check(e Expect, runErr error, r *Result) {
	switch {
	case e.Success && runErr != nil:
		r.AddError(fmt.Sprintf("expected success, got error: %v", runErr))
	case !e.Success && runErr == nil:
		r.AddError("expected failure, pipeline succeeded")
	}
	if e.ErrorCode != "" && e.ErrorCode != r.ErrorCode {
		r.AddError(fmt.Sprintf("expected error code %s, got %q", e.ErrorCode, r.ErrorCode))
	}

	out := r.Output()
	for _, want := range e.Output {
		if !strings.Contains(out, want) {
			r.AddError(fmt.Sprintf("output does not contain %q", want))
		}
	}
	diag := r.Diagnostics()
	for _, want := range e.Diagnostics {
		if !strings.Contains(diag, want) {
			r.AddError(fmt.Sprintf("diagnostics do not contain %q", want))
		}
	}
	if e.Executions != nil && *e.Executions != len(r.Trace) {
		r.AddError(fmt.Sprintf("expected %d pass executions, got %d", *e.Executions, len(r.Trace)))
	}
}
