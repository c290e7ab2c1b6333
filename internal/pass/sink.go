package pass

import (
	"io"
	"sync"
)

// Sink receives text chunks: printed pipelines, diagnostics and pass output.
// A Sink must not panic and must not retain chunks beyond the call.
type Sink func(text string)

// Discard is a Sink that drops everything.
func Discard(string) {}

// WriterSink adapts an io.Writer. Write errors are dropped.
func WriterSink(w io.Writer) Sink {
	return func(text string) {
		_, _ = io.WriteString(w, text)
	}
}

// orDiscard returns s, or Discard when s is nil.
func (s Sink) orDiscard() Sink {
	if s == nil {
		return Discard
	}
	return s
}

// serialized returns a Sink that forwards to s one call at a time.
func (s Sink) serialized() Sink {
	var mu sync.Mutex
	return func(text string) {
		mu.Lock()
		defer mu.Unlock()
		s(text)
	}
}
