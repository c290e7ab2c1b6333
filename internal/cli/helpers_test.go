package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const moduleIR = `op: builtin.module
body:
  - op: func.func
    attrs: {sym_name: foo}
    body:
      - op: arith.addi
      - op: func.return
  - op: func.func
    attrs: {sym_name: bar}
    body:
      - op: func.return
`

const catalogCUE = `package pipelines

pipeline: "module-stats": {
	description: "Print op stats for every function"
	pipeline:    "func.func(print-op-stats)"
}
`

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
