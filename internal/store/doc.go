// Package store provides SQLite-backed durable storage for pass manager
// run traces.
//
// The store is an append-only log with:
//   - Runs: one record per PassManager.Run, with its pipeline and outcome
//   - Pass executions: one record per pass invocation on one operation
//
// # Ordering
//
// Executions are ordered by a logical seq assigned by the Recorder when a
// pass invocation completes. Wall-clock time is never stored or used for
// ordering. Queries order by seq ASC; runs are listed by id, which for
// UUIDv7 ids is creation order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s on lock contention
//   - foreign_keys=ON: Enforce referential integrity
package store
