package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/triagekit/probekit/results"
	"github.com/triagekit/probekit/runner"
	"github.com/triagekit/probekit/tool"
)

func newTestOrchestrator(t *testing.T, descs ...tool.Descriptor) (*Orchestrator, *results.Store) {
	t.Helper()

	reg := tool.NewRegistry(nil)
	reg.Reload(descs, nil, tool.Workspace{Root: t.TempDir()})
	store := results.NewStore(results.StoreConfig{})
	run := runner.NewRunner(runner.Config{
		Registry:  reg,
		Store:     store,
		Workspace: tool.Workspace{Root: t.TempDir()},
	})

	return New(Config{Registry: reg, Runner: run, Store: store}), store
}

// countingTool returns a descriptor whose process appends one line to a
// file on every run, so tests can count executions.
func countingTool(t *testing.T, id string, interval time.Duration, exitCode int) (tool.Descriptor, func() int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs")

	desc := tool.Descriptor{
		ID:              id,
		Title:           id,
		Command:         "/bin/sh",
		Args:            []string{"-c", "echo run >> " + path + "; exit " + itoa(exitCode)},
		Enabled:         true,
		AutoRun:         true,
		RefreshInterval: interval,
		Timeout:         10 * time.Second,
	}

	count := func() int {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0
		}
		return strings.Count(string(data), "run")
	}
	return desc, count
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestEnsureFreshRespectsRefreshInterval(t *testing.T) {
	desc, count := countingTool(t, "count.tool", time.Second, 0)
	o, _ := newTestOrchestrator(t, desc)

	o.EnsureFresh(context.Background())
	o.EnsureFresh(context.Background())
	if got := count(); got != 1 {
		t.Fatalf("two calls within the interval ran %d times, want 1", got)
	}

	time.Sleep(1100 * time.Millisecond)
	o.EnsureFresh(context.Background())
	if got := count(); got != 2 {
		t.Fatalf("call after the interval ran %d times, want 2", got)
	}
}

func TestEnsureFreshRerunsFailedResults(t *testing.T) {
	desc, count := countingTool(t, "failing.tool", time.Hour, 3)
	o, _ := newTestOrchestrator(t, desc)

	o.EnsureFresh(context.Background())
	o.EnsureFresh(context.Background())
	if got := count(); got != 2 {
		t.Fatalf("failed result should stay stale: ran %d times, want 2", got)
	}
}

func TestEnsureFreshSkipsManualTools(t *testing.T) {
	desc, count := countingTool(t, "manual.tool", time.Second, 0)
	desc.AutoRun = false
	o, _ := newTestOrchestrator(t, desc)

	o.EnsureFresh(context.Background())
	if got := count(); got != 0 {
		t.Fatalf("manual tool ran %d times during refresh, want 0", got)
	}
}

func TestEnsureFreshIsolatesFailures(t *testing.T) {
	good, count := countingTool(t, "b.good", time.Second, 0)
	broken := tool.Descriptor{
		ID:              "a.broken",
		Title:           "a.broken",
		Command:         "/no/such/binary",
		Enabled:         true,
		AutoRun:         true,
		RefreshInterval: time.Second,
		Timeout:         10 * time.Second,
	}

	// Broken tool sorts first; its launch failure must not stop the sweep.
	o, _ := newTestOrchestrator(t, broken, good)
	o.EnsureFresh(context.Background())

	if got := count(); got != 1 {
		t.Fatalf("good tool ran %d times, want 1", got)
	}
}

func TestRunAndLastResult(t *testing.T) {
	o, _ := newTestOrchestrator(t, tool.Descriptor{
		ID:      "echo.tool",
		Title:   "Echo",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo hi"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	res, err := o.Run(context.Background(), tool.Request{ToolID: "echo.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	last, ok := o.LastResult("echo.tool")
	if !ok {
		t.Fatal("expected a cached result")
	}
	if last.RunID != res.RunID {
		t.Error("LastResult returned a different run")
	}

	if _, ok := o.LastResult("never.ran"); ok {
		t.Error("expected no result for an unknown id")
	}
}

// --- Compose ---

func intPtr(n int) *int { return &n }

func seedResult(s *results.Store, id string, startedAt time.Time, mutate func(*results.RunResult)) {
	r := &results.RunResult{
		RunID:     "run-" + id,
		ID:        id,
		Title:     id,
		Command:   "true",
		Success:   true,
		ExitCode:  intPtr(0),
		StartedAt: startedAt,
		Duration:  25 * time.Millisecond,
		Stdout:    "output of " + id,
	}
	if mutate != nil {
		mutate(r)
	}
	s.Put(r)
}

func TestComposeEmptyStore(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if got := o.Compose(1000); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestComposeRecencyOrderAndContent(t *testing.T) {
	o, store := newTestOrchestrator(t)
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	seedResult(store, "older", base, nil)
	seedResult(store, "newer", base.Add(time.Minute), func(r *results.RunResult) {
		r.Stderr = "a warning"
		r.Success = false
		r.ExitCode = intPtr(2)
	})

	out := o.Compose(10000)

	newerIdx := strings.Index(out, "(newer)")
	olderIdx := strings.Index(out, "(older)")
	if newerIdx == -1 || olderIdx == -1 {
		t.Fatalf("missing sections:\n%s", out)
	}
	if newerIdx > olderIdx {
		t.Error("most recent result must come first")
	}
	if !strings.Contains(out, "failed") || !strings.Contains(out, "exit=2") {
		t.Errorf("failure header missing:\n%s", out)
	}
	if !strings.Contains(out, "stderr:\na warning") {
		t.Errorf("stderr block missing:\n%s", out)
	}
	if !strings.Contains(out, "output of older") {
		t.Errorf("stdout missing:\n%s", out)
	}
}

func TestComposeStructuredPayload(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedResult(store, "structured", time.Now(), func(r *results.RunResult) {
		r.Stdout = `{"count":2}`
		r.Data = map[string]interface{}{"count": float64(2)}
	})

	out := o.Compose(10000)
	if !strings.Contains(out, `"count": 2`) {
		t.Errorf("expected serialized payload, got:\n%s", out)
	}
}

func TestComposeBudget(t *testing.T) {
	o, store := newTestOrchestrator(t)
	base := time.Now()
	seedResult(store, "first", base.Add(time.Minute), func(r *results.RunResult) {
		r.Stdout = strings.Repeat("a", 500)
	})
	seedResult(store, "second", base, func(r *results.RunResult) {
		r.Stdout = strings.Repeat("b", 500)
	})

	for _, budget := range []int{50, 120, 400, 600} {
		out := o.Compose(budget)
		if len(out) > budget {
			t.Errorf("budget %d exceeded: len=%d", budget, len(out))
		}
		if n := strings.Count(out, TruncationMarker); n > 1 {
			t.Errorf("budget %d: marker appended %d times", budget, n)
		}
	}

	out := o.Compose(400)
	if !strings.HasSuffix(out, TruncationMarker) {
		t.Errorf("expected truncation marker when cut mid-result:\n%q", out)
	}
	if strings.Contains(out, "(second)") {
		t.Error("results past the budget must be omitted entirely")
	}
}

func TestComposeCutAlwaysCarriesMarker(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedResult(store, "lone", time.Now(), func(r *results.RunResult) {
		r.Stdout = strings.Repeat("a", 500)
	})

	full := o.Compose(1 << 20)
	for budget := len(TruncationMarker); budget < len(full); budget += 37 {
		out := o.Compose(budget)
		if len(out) > budget {
			t.Fatalf("budget %d exceeded: len=%d", budget, len(out))
		}
		if !strings.HasSuffix(out, TruncationMarker) {
			t.Errorf("budget %d: cut output missing marker:\n%q", budget, out)
		}
	}
}

func TestComposeOmitsSectionWhenMarkerCannotFit(t *testing.T) {
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	oFirst, storeFirst := newTestOrchestrator(t)
	seedResult(storeFirst, "newer", base.Add(time.Minute), nil)
	firstOnly := oFirst.Compose(1 << 20)

	o, store := newTestOrchestrator(t)
	seedResult(store, "older", base, nil)
	seedResult(store, "newer", base.Add(time.Minute), nil)

	for k := 0; k < len(TruncationMarker); k++ {
		out := o.Compose(len(firstOnly) + k)
		if out != firstOnly {
			t.Errorf("budget %d: want the complete first section alone, got:\n%q", len(firstOnly)+k, out)
		}
	}
}

func TestComposeCutsOnRuneBoundary(t *testing.T) {
	o, store := newTestOrchestrator(t)
	seedResult(store, "unicode", time.Now(), func(r *results.RunResult) {
		r.Stdout = strings.Repeat("日本語", 100)
	})

	for budget := 80; budget < 120; budget++ {
		out := o.Compose(budget)
		if !utf8.ValidString(out) {
			t.Fatalf("budget %d: output splits a rune:\n%q", budget, out)
		}
		if !strings.HasSuffix(out, TruncationMarker) {
			t.Errorf("budget %d: cut output missing marker", budget)
		}
	}
}
