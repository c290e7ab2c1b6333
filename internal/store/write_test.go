package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginEndRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: "any()", RootOp: "builtin.module"}))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)

	require.NoError(t, s.EndRun(ctx, "run-1", nil))
	run, err = s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:       "run-1",
		Pipeline: "any()",
		RootOp:   "builtin.module",
		Status:   RunSucceeded,
	}, run)
}

func TestEndRun_Failed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: "any()", RootOp: "builtin.module"}))

	require.NoError(t, s.EndRun(ctx, "run-1", errors.New("pass failed")))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Equal(t, "pass failed", run.Error)
}

func TestEndRun_Unknown(t *testing.T) {
	s := createTestStore(t)

	err := s.EndRun(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestBeginRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: "first", RootOp: "builtin.module"}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: "second", RootOp: "builtin.module"}))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "first", run.Pipeline)
}

func TestWriteExecution_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteExecution(context.Background(), Execution{
		RunID:  "missing",
		Seq:    1,
		Pass:   "print-op-stats",
		Op:     "func.func",
		Status: ExecOK,
	})
	assert.Error(t, err, "foreign key constraint")
}

func TestWriteExecution_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: "any()", RootOp: "builtin.module"}))

	first := Execution{RunID: "run-1", Seq: 1, Pass: "a", Op: "func.func", Status: ExecOK}
	second := Execution{RunID: "run-1", Seq: 1, Pass: "b", Op: "func.func", Status: ExecFailed}
	require.NoError(t, s.WriteExecution(ctx, first))
	require.NoError(t, s.WriteExecution(ctx, second))

	execs, err := s.ReadExecutions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "a", execs[0].Pass)
}
