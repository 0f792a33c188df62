package runner

import (
	"sync"

	"github.com/triagekit/probekit/results"
)

// inflight is the shared outcome of a single in-progress execution.
// Waiters block on done and then read result/err, which are written
// exactly once before done is closed.
type inflight struct {
	done   chan struct{}
	result *results.RunResult
	err    error
}

// guard deduplicates non-forced executions per tool id. At most one
// non-forced run is in flight per id; later non-forced callers attach to
// it and observe the identical RunResult. Entries are removed once the
// outcome settles, so the next request starts fresh.
type guard struct {
	mu      sync.Mutex
	pending map[string]*inflight
}

func newGuard() *guard {
	return &guard{pending: make(map[string]*inflight)}
}

// run executes fn under the dedup discipline. Forced runs bypass the
// pending map entirely and always invoke fn.
func (g *guard) run(id string, force bool, fn func() (*results.RunResult, error)) (*results.RunResult, error) {
	if force {
		return fn()
	}

	g.mu.Lock()
	if in, ok := g.pending[id]; ok {
		g.mu.Unlock()
		<-in.done
		return in.result, in.err
	}
	in := &inflight{done: make(chan struct{})}
	g.pending[id] = in
	g.mu.Unlock()

	in.result, in.err = fn()

	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()
	close(in.done)

	return in.result, in.err
}
