package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/passman/internal/ir"
	"github.com/roach88/passman/internal/pass"
)

func externalPass(argument, opName string, failOn string) *pass.ExternalPass {
	return pass.NewExternalPass(0, argument, argument, "", opName, nil, pass.ExternalCallbacks{
		Run: func(op *ir.Operation, ext *pass.ExternalPass, _ any) {
			if sym, _ := op.Attr("sym_name"); failOn != "" && sym == failOn {
				ext.SignalFailure()
			}
		},
	}, nil)
}

func testModule() *ir.Operation {
	return ir.NewOperation("builtin.module",
		ir.NewOperation("func.func").SetAttr("sym_name", "foo"),
		ir.NewOperation("func.func").SetAttr("sym_name", "bar"),
	)
}

func TestRecordRun_Success(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pm := pass.New(ir.NewContext())
	defer pm.Close()
	pm.AddPass(externalPass("module-pass", "", ""))
	pm.NestedUnder("func.func").AddPass(externalPass("func-pass", "func.func", ""))

	id, err := RecordRun(ctx, s, NewFixedGenerator("run-1"), pm, testModule())
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:       "run-1",
		Pipeline: "any(module-pass,func.func(func-pass))",
		RootOp:   "builtin.module",
		Status:   RunSucceeded,
	}, run)

	execs, err := s.ReadExecutions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Execution{
		{RunID: "run-1", Seq: 1, Pass: "module-pass", Op: "builtin.module", Attrs: map[string]string{}, Status: ExecOK},
		{RunID: "run-1", Seq: 2, Pass: "func-pass", Op: "func.func", Attrs: map[string]string{"sym_name": "foo"}, Status: ExecOK},
		{RunID: "run-1", Seq: 3, Pass: "func-pass", Op: "func.func", Attrs: map[string]string{"sym_name": "bar"}, Status: ExecOK},
	}, execs)
}

func TestRecordRun_Failure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pm := pass.New(ir.NewContext())
	defer pm.Close()
	pm.NestedUnder("func.func").AddPass(externalPass("check", "func.func", "foo"))

	id, err := RecordRun(ctx, s, NewFixedGenerator("run-1"), pm, testModule())
	require.Error(t, err)
	assert.True(t, pass.IsPassFailure(err))

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, run.Status)
	assert.Contains(t, run.Error, "pass 'check' failed on 'func.func @foo'")

	execs, err := s.ReadExecutions(ctx, id)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, ExecFailed, execs[0].Status)
}

func TestRecordRun_RemovesRecorder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pm := pass.New(ir.NewContext())
	defer pm.Close()
	pm.AddPass(externalPass("module-pass", "", ""))

	gen := NewFixedGenerator("run-1", "run-2")
	_, err := RecordRun(ctx, s, gen, pm, testModule())
	require.NoError(t, err)
	_, err = RecordRun(ctx, s, gen, pm, testModule())
	require.NoError(t, err)

	first, err := s.ReadExecutions(ctx, "run-1")
	require.NoError(t, err)
	second, err := s.ReadExecutions(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestRecorder_Multithreaded(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m := ir.NewOperation("builtin.module")
	for range 12 {
		m.Append(ir.NewOperation("func.func"))
	}
	pm := pass.New(ir.NewContext(ir.WithMultithreading(true)), pass.WithWorkers(4))
	defer pm.Close()
	pm.NestedUnder("func.func").AddPass(externalPass("visit", "func.func", ""))

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Pipeline: pm.String(), RootOp: "builtin.module"}))
	rec := NewRecorder(ctx, s, "run-1")
	pm.AddInstrumentation(rec)
	require.NoError(t, pm.Run(ctx, m))
	require.NoError(t, rec.Err())

	assert.Equal(t, int64(12), rec.Count())
	execs, err := s.ReadExecutions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, execs, 12)
	for i, e := range execs {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestRecorder_KeepsFirstError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pm := pass.New(ir.NewContext())
	defer pm.Close()
	pm.AddPass(externalPass("module-pass", "", ""))

	rec := NewRecorder(ctx, s, "no-such-run")
	pm.AddInstrumentation(rec)
	require.NoError(t, pm.Run(ctx, testModule()), "recording errors do not fail the run")

	assert.Error(t, rec.Err())
}

func TestGenerators(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })

	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
