// Package ir is the narrow program representation the pass manager schedules
// over.
//
// The pass manager only needs three things from it:
//   - an interned operation kind per node (OperationName, compared by pointer)
//   - the ordered children of each node, for the structural walk
//   - a Context handed opaquely to pass initialization and execution
//
// Everything else here (attributes, YAML documents, canonical JSON) serves
// passes, the CLI and tests. ir imports nothing internal.
package ir
