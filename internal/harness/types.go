package harness

import (
	"strings"

	"github.com/roach88/passman/internal/store"
)

// Stream names the sink an Event was written to.
type Stream string

const (
	StreamOutput     Stream = "output"
	StreamDiagnostic Stream = "diagnostic"
)

// Event is one sink call captured during a scenario.
type Event struct {
	Seq    int64
	Stream Stream
	Text   string
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool

	// Errors lists the expectations that did not hold.
	Errors []string

	// Pipeline is the printed form of the parsed pipeline, or "" if the
	// pipeline text did not parse.
	Pipeline string

	// ErrorCode is the code of the parse or run error, or "".
	ErrorCode string

	// Transcript holds every sink call in emission order.
	Transcript []Event

	// Trace holds the pass executions recorded during the run, by seq.
	Trace []store.Execution
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Output returns the concatenated text of the output stream.
func (r *Result) Output() string {
	return r.stream(StreamOutput)
}

// Diagnostics returns the concatenated text of the diagnostic stream.
func (r *Result) Diagnostics() string {
	return r.stream(StreamDiagnostic)
}

func (r *Result) stream(s Stream) string {
	var b strings.Builder
	for _, e := range r.Transcript {
		if e.Stream == s {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}
