// Package transforms provides concrete passes for the pass manager.
package transforms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

// PrintOpStatsArgument is the mnemonic of the PrintOpStats pass.
const PrintOpStatsArgument = "print-op-stats"

// PrintOpStats counts operations by name in the subtree it runs on and writes
// a summary to the run's output sink.
type PrintOpStats struct {
	pass.Base
	json bool
}

// NewPrintOpStats returns a PrintOpStats pass with default options.
func NewPrintOpStats() *PrintOpStats {
	p := &PrintOpStats{
		Base: pass.NewBase(pass.Info{
			ID:          printOpStatsID,
			Name:        "PrintOpStats",
			Argument:    PrintOpStatsArgument,
			Description: "Print statistics of operations",
		}),
	}
	p.Info().Options.BoolVar(&p.json, "json", false, "print the stats as JSON")
	return p
}

var printOpStatsID = pass.NewTypeID()

// Clone implements pass.Pass.
func (p *PrintOpStats) Clone() pass.Pass {
	cp := NewPrintOpStats()
	if err := cp.Info().Options.CopyFrom(p.Info().Options); err != nil {
		panic(fmt.Sprintf("clone %s options: %v", PrintOpStatsArgument, err))
	}
	return cp
}

// Run implements pass.Pass.
func (p *PrintOpStats) Run(op *ir.Operation, x *pass.Execution) {
	counts := CountOps(op)
	if p.json {
		data, err := ir.MarshalCanonical(counts)
		if err != nil {
			x.Errorf(op, "encode op stats: %v", err)
			return
		}
		x.Output()(string(data) + "\n")
		return
	}
	x.Output()(FormatOpStats(counts))
}

// CountOps counts op and every nested operation by name.
func CountOps(op *ir.Operation) map[string]int {
	counts := make(map[string]int)
	op.Walk(func(o *ir.Operation) bool {
		counts[o.Name().String()]++
		return true
	})
	return counts
}

// FormatOpStats renders counts as a table sorted by operation name:
//
//	Operations encountered:
//	-----------------------
//	  arith.addi  , 1
//	  func.func   , 1
func FormatOpStats(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	width := 0
	for name := range counts {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Operations encountered:\n")
	b.WriteString("-----------------------\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-*s , %d\n", width, name, counts[name])
	}
	return b.String()
}
