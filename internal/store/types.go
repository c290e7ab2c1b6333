package store

import "errors"

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// ExecStatus is the outcome of one pass execution.
type ExecStatus string

const (
	ExecOK     ExecStatus = "ok"
	ExecFailed ExecStatus = "failed"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// Run is the record of one PassManager.Run.
type Run struct {
	ID       string
	Pipeline string
	RootOp   string
	Status   RunStatus
	Error    string
}

// Execution is the record of one pass invocation on one operation.
type Execution struct {
	RunID  string
	Seq    int64
	Pass   string
	Op     string
	Attrs  map[string]string
	Status ExecStatus
}
