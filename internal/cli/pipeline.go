package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

// PipelineOptions holds flags for the pipeline command.
type PipelineOptions struct {
	*RootOptions
	Catalog string
}

// PipelineResult is the JSON payload of the pipeline command.
type PipelineResult struct {
	Input    string `json:"input"`
	Pipeline string `json:"pipeline"`
	Anchor   string `json:"anchor"`
	Passes   int    `json:"passes"`
}

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pipeline <text>",
		Short: "Parse and print a pipeline",
		Long: `Parse pipeline text and print its normalized form.

Registered pipelines are expanded and every pass prints its full option
set, so the output round-trips through the parser unchanged.

Example:
  passman pipeline 'builtin.module(function-op-stats)'
  passman pipeline 'builtin.module(my-pipeline)' --catalog ./pipelines`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrintPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE pipeline definitions")

	return cmd
}

func runPrintPipeline(opts *PipelineOptions, text string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	reg, err := buildRegistry(opts.Catalog)
	if err != nil {
		return err
	}

	pm := pass.New(ir.NewContext(), pass.WithRegistry(reg))
	defer pm.Close()

	var diag strings.Builder
	if err := pass.ParsePipeline(pm.AsOpPassManager(), text, pass.WriterSink(&diag)); err != nil {
		if f.JSON() {
			_ = f.PassError(err, map[string]string{"diagnostics": diag.String()})
		} else {
			fmt.Fprint(f.GetErrWriter(), diag.String())
		}
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}

	root := pm.AsOpPassManager()
	if f.JSON() {
		return f.Success(PipelineResult{
			Input:    text,
			Pipeline: pm.String(),
			Anchor:   root.Anchor(),
			Passes:   countPasses(root),
		})
	}
	return f.Success(pm.String())
}

// countPasses counts the passes of opm and every manager nested under it.
func countPasses(opm *pass.OpPassManager) int {
	n := len(opm.Passes())
	for _, nested := range opm.Nested() {
		n += countPasses(nested)
	}
	return n
}
