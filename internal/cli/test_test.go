package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsScenario = `name: stats
description: op stats of every function
input: module.ir
pipeline: builtin.module(func.func(print-op-stats))
expect:
  success: true
  executions: 2
`

const statsGolden = `scenario: stats
pipeline: builtin.module(func.func(print-op-stats{json=false}))
error_code: -
--- trace
1 ok print-op-stats func.func sym_name=foo
2 ok print-op-stats func.func sym_name=bar
--- output
Operations encountered:
-----------------------
  arith.addi  , 1
  func.func   , 1
  func.return , 1
Operations encountered:
-----------------------
  func.func   , 1
  func.return , 1
--- diagnostic
`

const failingScenario = `name: failing
description: expects success from an unknown pass
input: module.ir
pipeline: builtin.module(nope)
expect:
  success: true
`

func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "module.ir", moduleIR)
	writeFile(t, dir, "stats.yaml", statsScenario)
	return dir
}

func TestTestCommand_Pass(t *testing.T) {
	dir := scenarioDir(t)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stats")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := scenarioDir(t)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "expected success, got error")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := scenarioDir(t)

	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "golden", "stats.golden"))
	require.NoError(t, err)
	assert.Equal(t, statsGolden, string(data))

	_, _, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := scenarioDir(t)
	writeFile(t, dir, "golden/stats.golden", "scenario: stats\n")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "st*")
	require.NoError(t, err)
	assert.NotContains(t, out, "failing")
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := scenarioDir(t)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string     `json:"code"`
			Details TestResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Error.Details.Total)
	assert.Equal(t, 1, resp.Error.Details.Failed)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, _, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
