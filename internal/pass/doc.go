// Package pass implements a hierarchical, operation-scoped pass manager.
//
// A PassManager owns a tree of OpPassManagers. Each OpPassManager is anchored
// to one operation kind and holds an ordered list of passes and nested
// OpPassManagers:
//
//	any(
//	  builtin.module(
//	    func.func(print-op-stats{json=false})))
//
// Running the manager walks the IR structurally. Passes attached to an
// OpPassManager run, in insertion order, on the operation that manager was
// invoked for. A nested OpPassManager runs on each direct child whose kind
// equals its anchor, recursively. It does not scan the whole subtree.
//
// EXECUTION MODEL:
//
//   - Validation: anchors and pass restrictions are checked before anything runs
//   - Initialization: every pass instance is initialized once before its first run
//   - Scheduling: first failure aborts the remainder of the run
//   - Threading: with multithreading enabled on the ir.Context, sibling
//     operations matched by the same nested manager are spread over workers;
//     each extra worker gets its own cloned pass instances
//
// The textual pipeline form is produced by PrintPipeline and consumed by
// ParsePipeline (replace) and AddPipeline (append). Mnemonics are resolved
// through a Registry. All human-readable output goes through caller-supplied
// Sinks; nothing in this package writes to a fixed stream.
//
// ExternalPass adapts a bundle of lifecycle callbacks into a Pass. For every
// adapter the number of Destruct calls equals Construct calls plus Clone calls
// once the owning PassManager is closed.
package pass
