package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadRun returns the run record for id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var (
		run    Run
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline, root_op, status, error
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Pipeline, &run.RootOp, &status, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	run.Status = RunStatus(status)
	return run, nil
}

// ListRuns returns every run ordered by id.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline, root_op, status, error
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run    Run
			status string
		)
		if err := rows.Scan(&run.ID, &run.Pipeline, &run.RootOp, &status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadExecutions returns the pass executions of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no executions.
func (s *Store) ReadExecutions(ctx context.Context, runID string) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, pass, op, attrs, status
		FROM pass_executions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		var (
			e         Execution
			attrsJSON string
			status    string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Pass, &e.Op, &attrsJSON, &status); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		attrs, err := unmarshalAttrs(attrsJSON)
		if err != nil {
			return nil, err
		}
		e.Attrs = attrs
		e.Status = ExecStatus(status)
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}
