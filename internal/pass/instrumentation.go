package pass

import (
	"context"
	"log/slog"

	"github.com/roach88/passman/internal/ir"
)

// Instrumentation observes pass execution. Hooks may be called concurrently
// from worker goroutines; implementations must be safe for concurrent use.
type Instrumentation interface {
	// BeforePass is called before p runs on op.
	BeforePass(p Pass, op *ir.Operation)

	// AfterPass is called after p ran successfully on op.
	AfterPass(p Pass, op *ir.Operation)

	// AfterPassFailed is called after p signalled failure on op.
	AfterPassFailed(p Pass, op *ir.Operation)
}

// LogInstrumentation logs every pass execution through slog.
type LogInstrumentation struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogInstrumentation returns an instrumentation logging at debug level.
// A nil logger uses slog.Default().
func NewLogInstrumentation(logger *slog.Logger) *LogInstrumentation {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInstrumentation{Logger: logger, Level: slog.LevelDebug}
}

func (l *LogInstrumentation) BeforePass(p Pass, op *ir.Operation) {
	l.log("running pass", p, op)
}

func (l *LogInstrumentation) AfterPass(p Pass, op *ir.Operation) {
	l.log("pass completed", p, op)
}

func (l *LogInstrumentation) AfterPassFailed(p Pass, op *ir.Operation) {
	l.Logger.Warn("pass failed",
		"pass", p.Info().Mnemonic(),
		"op", describeOp(op),
	)
}

func (l *LogInstrumentation) log(msg string, p Pass, op *ir.Operation) {
	l.Logger.Log(context.Background(), l.Level, msg,
		"pass", p.Info().Mnemonic(),
		"op", describeOp(op),
	)
}
