package store

import (
	"context"
	"fmt"
)

// BeginRun inserts a run record with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, pipeline, root_op, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Pipeline, run.RootOp, string(RunRunning))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// EndRun records the outcome of a run. runErr is nil for a successful run.
func (s *Store) EndRun(ctx context.Context, id string, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE id = ?
	`, string(status), msg, id)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("end run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// WriteExecution inserts a pass execution record.
// Duplicate (run_id, seq) pairs are silently ignored.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteExecution(ctx context.Context, e Execution) error {
	attrsJSON, err := marshalAttrs(e.Attrs)
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pass_executions (run_id, seq, pass, op, attrs, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, e.RunID, e.Seq, e.Pass, e.Op, attrsJSON, string(e.Status))
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	return nil
}
