package runner

import (
	"bytes"
	"sync"
)

// Default per-stream capture caps, in bytes. Output past the cap is
// discarded as it arrives rather than buffered, so memory per run stays
// bounded no matter how much the process prints.
const (
	DefaultStdoutCap = 20000
	DefaultStderrCap = 5000
)

// cappedWriter captures up to cap bytes and drops the rest. It never
// reports an error to the writing side; the process keeps running after
// the cap is hit.
type cappedWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	cap       int
	truncated bool
}

func newCappedWriter(capacity int) *cappedWriter {
	return &cappedWriter{cap: capacity}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.cap - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *cappedWriter) Captured() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String(), w.truncated
}
