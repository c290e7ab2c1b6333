package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/passman/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Pass     string // optional - filter to one pass mnemonic
}

// TraceRun is one run in trace output.
type TraceRun struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	RootOp   string `json:"root_op"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// TraceExecution is one pass execution in trace output.
type TraceExecution struct {
	Seq    int64             `json:"seq"`
	Pass   string            `json:"pass"`
	Op     string            `json:"op"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Status string            `json:"status"`
}

// TraceResult holds the trace of one run.
type TraceResult struct {
	Run        TraceRun         `json:"run"`
	Executions []TraceExecution `json:"executions"`
	Stats      TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Executions int            `json:"executions"`
	Failed     int            `json:"failed"`
	PerPass    map[string]int `json:"per_pass"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Show runs recorded by 'passman run --db'.

Without --run, lists every run in the database. With --run, shows the
pass executions of that run in completion order.

Examples:
  passman trace --db ./trace.db
  passman trace --db ./trace.db --run 0192d4e0-...
  passman trace --db ./trace.db --run 0192d4e0-... --pass print-op-stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "filter executions to one pass mnemonic")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmdContext(cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		out := make([]TraceRun, len(runs))
		for i, r := range runs {
			out[i] = toTraceRun(r)
		}
		if f.JSON() {
			return f.Success(out)
		}
		outputRunList(f.Writer, out)
		return nil
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitFailure, "no such run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	execs, err := st.ReadExecutions(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read executions", err)
	}

	result := buildTrace(run, execs, opts.Pass)
	if f.JSON() {
		return f.Success(result)
	}
	outputTraceText(f.Writer, result, opts.Verbose)
	return nil
}

func toTraceRun(r store.Run) TraceRun {
	return TraceRun{
		ID:       r.ID,
		Pipeline: r.Pipeline,
		RootOp:   r.RootOp,
		Status:   string(r.Status),
		Error:    r.Error,
	}
}

// buildTrace converts store records to trace output. When passFilter is
// set, only executions of that pass are kept.
func buildTrace(run store.Run, execs []store.Execution, passFilter string) TraceResult {
	result := TraceResult{
		Run:        toTraceRun(run),
		Executions: []TraceExecution{},
		Stats:      TraceStats{PerPass: map[string]int{}},
	}
	for _, e := range execs {
		if passFilter != "" && e.Pass != passFilter {
			continue
		}
		result.Executions = append(result.Executions, TraceExecution{
			Seq:    e.Seq,
			Pass:   e.Pass,
			Op:     e.Op,
			Attrs:  e.Attrs,
			Status: string(e.Status),
		})
		result.Stats.Executions++
		result.Stats.PerPass[e.Pass]++
		if e.Status == store.ExecFailed {
			result.Stats.Failed++
		}
	}
	return result
}

func outputRunList(w io.Writer, runs []TraceRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-9s  %s on %s\n", r.ID, r.Status, r.Pipeline, r.RootOp)
	}
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Pipeline: %s\n", result.Run.Pipeline)
	fmt.Fprintf(w, "Root: %s\n", result.Run.RootOp)
	fmt.Fprintf(w, "Status: %s\n", result.Run.Status)
	if result.Run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Run.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Executions ===")
	if len(result.Executions) == 0 {
		fmt.Fprintln(w, "  (no executions)")
	}
	for _, e := range result.Executions {
		fmt.Fprintf(w, "  [%d] %s %s on %s", e.Seq, statusMark(e.Status), e.Pass, e.Op)
		if sym, ok := e.Attrs["sym_name"]; ok {
			fmt.Fprintf(w, " @%s", sym)
		}
		fmt.Fprintln(w)
		if verbose && len(e.Attrs) > 0 {
			fmt.Fprintf(w, "       Attrs: %s\n", formatAttrs(e.Attrs))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Executions: %d\n", result.Stats.Executions)
	fmt.Fprintf(w, "  Failed:     %d\n", result.Stats.Failed)
	passes := make([]string, 0, len(result.Stats.PerPass))
	for p := range result.Stats.PerPass {
		passes = append(passes, p)
	}
	slices.Sort(passes)
	for _, p := range passes {
		fmt.Fprintf(w, "  %s: %d\n", p, result.Stats.PerPass[p])
	}
}

func statusMark(status string) string {
	if status == string(store.ExecOK) {
		return "✓"
	}
	return "✗"
}

// formatAttrs renders attributes as k=v pairs sorted by key.
func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}
