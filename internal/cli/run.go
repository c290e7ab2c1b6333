package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
	"github.com/roach88/passman/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Pipeline string
	Database string
	Threads  int
	Catalog  string
	EmitIR   string

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunResult is the JSON payload of a successful run.
type RunResult struct {
	Pipeline string `json:"pipeline"`
	RunID    string `json:"run_id,omitempty"`
	Output   string `json:"output"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <ir-file>",
		Short: "Run a pipeline over an IR file",
		Long: `Run a pass pipeline over the operation tree stored in a YAML IR file.

Pass output goes to stdout, diagnostics to stderr. With --db every pass
execution is recorded and can be read back with 'passman trace'.

Example:
  passman run --pipeline 'builtin.module(func.func(print-op-stats))' ./module.yaml
  passman run --pipeline 'builtin.module(my-pipeline)' --catalog ./pipelines ./module.yaml
  passman run --pipeline 'builtin.module(function-op-stats)' --db ./trace.db --threads 4 ./module.yaml
  passman run --pipeline 'builtin.module(print-op-stats)' --emit-ir ./out.yaml ./module.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Pipeline, "pipeline", "p", "", "anchored pipeline text (required)")
	_ = cmd.MarkFlagRequired("pipeline")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "worker count; more than 1 enables multithreading")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE pipeline definitions")
	cmd.Flags().StringVar(&opts.EmitIR, "emit-ir", "", "write the IR after a successful run to this YAML file")

	return cmd
}

func runPipeline(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Threads < 0 {
		return NewExitError(ExitCommandError, "--threads must be non-negative")
	}

	reg, err := buildRegistry(opts.Catalog)
	if err != nil {
		return err
	}

	op, err := ir.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load IR", err)
	}
	f.VerboseLog("loaded %s (%s)", path, op.Name())

	// JSON mode collects everything into the response.
	var outBuf, diagBuf strings.Builder
	outW, diagW := io.Writer(cmd.OutOrStdout()), f.GetErrWriter()
	if f.JSON() {
		outW, diagW = &outBuf, &diagBuf
	}

	c := ir.NewContext(ir.WithUnregisteredDialects(), ir.WithMultithreading(opts.Threads > 1))
	pmOpts := []pass.Option{
		pass.WithRegistry(reg),
		pass.WithOutput(pass.WriterSink(outW)),
		pass.WithDiagnostics(pass.WriterSink(diagW)),
	}
	if opts.Threads > 0 {
		pmOpts = append(pmOpts, pass.WithWorkers(opts.Threads))
	}
	if opts.Verbose {
		pmOpts = append(pmOpts, pass.WithInstrumentation(pass.NewLogInstrumentation(nil)))
	}
	pm := pass.New(c, pmOpts...)
	defer pm.Close()

	if err := pass.ParsePipeline(pm.AsOpPassManager(), opts.Pipeline, pass.WriterSink(diagW)); err != nil {
		if f.JSON() {
			_ = f.PassError(err, map[string]string{"diagnostics": diagBuf.String()})
		}
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}
	f.VerboseLog("pipeline: %s", pm)

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runID string
	var runErr error
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		gen := opts.IDGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		runID, runErr = store.RecordRun(ctx, st, gen, pm, op)
		if !f.JSON() {
			fmt.Fprintf(f.GetErrWriter(), "run %s recorded in %s\n", runID, opts.Database)
		}
	} else {
		runErr = pm.Run(ctx, op)
	}

	if runErr != nil {
		if f.JSON() {
			details := map[string]string{"diagnostics": diagBuf.String()}
			if runID != "" {
				details["run_id"] = runID
			}
			_ = f.PassError(runErr, details)
		}
		return WrapExitError(ExitFailure, "pipeline failed", runErr)
	}

	if opts.EmitIR != "" {
		data, err := ir.Marshal(op)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode IR", err)
		}
		if err := os.WriteFile(opts.EmitIR, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write IR", err)
		}
		f.VerboseLog("wrote %s", opts.EmitIR)
	}

	if f.JSON() {
		return f.Success(RunResult{Pipeline: pm.String(), RunID: runID, Output: outBuf.String()})
	}
	return nil
}

// cmdContext returns the command's context, or Background when the command
// is executed without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
