package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PassesOptions holds flags for the passes command.
type PassesOptions struct {
	*RootOptions
	Catalog string
}

// PassEntry describes one registry entry.
type PassEntry struct {
	Argument    string `json:"argument"`
	Kind        string `json:"kind"` // "pass" or "pipeline"
	Description string `json:"description,omitempty"`
	Options     string `json:"options,omitempty"`
	Pipeline    string `json:"pipeline,omitempty"`
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PassesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "passes",
		Short: "List registered passes and pipelines",
		Long: `List every pass and pipeline that pipeline text can refer to.

Passes show their options with default values. Pipelines show the
element list they expand into.

Example:
  passman passes
  passman passes --catalog ./pipelines --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListPasses(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE pipeline definitions")

	return cmd
}

func runListPasses(opts *PassesOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	reg, err := buildRegistry(opts.Catalog)
	if err != nil {
		return err
	}

	regs := reg.Entries()
	entries := make([]PassEntry, 0, len(regs))
	for _, r := range regs {
		e := PassEntry{Argument: r.Argument, Description: r.Description, Kind: "pass"}
		if r.IsPipeline() {
			e.Kind = "pipeline"
			e.Pipeline = r.Pipeline
		} else {
			p := r.Factory()
			e.Options = p.Info().Options.String()
			p.Close()
		}
		entries = append(entries, e)
	}

	if f.JSON() {
		return f.Success(entries)
	}

	width := 0
	for _, e := range entries {
		width = max(width, len(e.Argument))
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "  %-*s  %-8s  %s\n", width, e.Argument, e.Kind, e.Description)
		switch {
		case e.Options != "":
			fmt.Fprintf(&b, "  %-*s  %-8s  options: %s\n", width, "", "", e.Options)
		case e.Pipeline != "":
			fmt.Fprintf(&b, "  %-*s  %-8s  expands: %s\n", width, "", "", e.Pipeline)
		}
	}
	fmt.Fprint(f.Writer, b.String())
	return nil
}
