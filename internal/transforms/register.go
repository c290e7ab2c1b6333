package transforms

import "github.com/roach88/passman/internal/pass"

// FunctionStatsPipeline is the mnemonic of a pipeline printing op stats for
// every function of a module.
const FunctionStatsPipeline = "function-op-stats"

// RegisterAll registers the passes and pipelines of this package in reg.
// Already registered mnemonics are left untouched.
func RegisterAll(reg *pass.Registry) {
	reg.RegisterPass(PrintOpStatsArgument, "Print statistics of operations",
		func() pass.Pass { return NewPrintOpStats() })
	reg.RegisterPipeline(FunctionStatsPipeline, "Print op stats for every func.func",
		"func.func(print-op-stats)")
}
