// Package harness runs pipeline conformance scenarios.
//
// A scenario names an IR input, a pipeline text and the expected outcome:
//
//	name: function_stats
//	description: print-op-stats runs once per top-level function
//	input: ../testdata/nested_module.yaml
//	pipeline: builtin.module(func.func(print-op-stats))
//	expect:
//	  success: true
//	  output:
//	    - "func.return , 1"
//
// Each scenario runs against a fresh PassManager and a fresh in-memory
// store. The recorded trace, captured output and diagnostics form the
// Result, which can be compared against a golden snapshot with
// RunWithGolden.
package harness
