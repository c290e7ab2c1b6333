package harness

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/passman/internal/store"
)

// Snapshot renders the observable outcome of a scenario run:
//
//	scenario: function_stats
//	pipeline: builtin.module(func.func(print-op-stats{json=false}))
//	error_code: -
//	--- trace
//	1 ok print-op-stats func.func sym_name=foo
//	--- output
//	...
//	--- diagnostics
//
// Multithreaded runs complete in nondeterministic order, so their trace
// lines drop the seq and, like their output chunks, are sorted.
func Snapshot(s *Scenario, r *Result) []byte {
	threaded := s.Threads > 1

	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", s.Name)
	fmt.Fprintf(&b, "pipeline: %s\n", orDash(r.Pipeline))
	fmt.Fprintf(&b, "error_code: %s\n", orDash(r.ErrorCode))

	b.WriteString("--- trace\n")
	lines := make([]string, 0, len(r.Trace))
	for _, e := range r.Trace {
		lines = append(lines, traceLine(e, !threaded))
	}
	if threaded {
		slices.Sort(lines)
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	for _, st := range []Stream{StreamOutput, StreamDiagnostic} {
		fmt.Fprintf(&b, "--- %s\n", st)
		var chunks []string
		for _, e := range r.Transcript {
			if e.Stream == st {
				chunks = append(chunks, e.Text)
			}
		}
		if threaded {
			slices.Sort(chunks)
		}
		b.WriteString(strings.Join(chunks, ""))
	}
	return []byte(b.String())
}

func traceLine(e store.Execution, withSeq bool) string {
	var b strings.Builder
	if withSeq {
		fmt.Fprintf(&b, "%d ", e.Seq)
	}
	fmt.Fprintf(&b, "%s %s %s", e.Status, e.Pass, e.Op)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RunWithGolden executes a scenario and compares its Snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, s, result)
	return result, nil
}

// AssertGolden compares the Snapshot of an existing result against the
// scenario's golden file.
func AssertGolden(t *testing.T, s *Scenario, r *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, Snapshot(s, r))
}
