package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/triagekit/probekit/errors"
	"github.com/triagekit/probekit/results"
	"github.com/triagekit/probekit/telemetry"
	"github.com/triagekit/probekit/tool"
)

type recordingExporter struct {
	mu   sync.Mutex
	runs []telemetry.RunEvent
}

func (e *recordingExporter) LogEvent(string, map[string]interface{}) {}

func (e *recordingExporter) LogRun(ev telemetry.RunEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, ev)
}

func (e *recordingExporter) Flush() error { return nil }
func (e *recordingExporter) Close() error { return nil }

func (e *recordingExporter) events() []telemetry.RunEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]telemetry.RunEvent(nil), e.runs...)
}

func newTestRunner(t *testing.T, descs ...tool.Descriptor) (*Runner, *results.Store) {
	t.Helper()

	reg := tool.NewRegistry(nil)
	reg.Reload(descs, nil, tool.Workspace{Root: t.TempDir()})
	store := results.NewStore(results.StoreConfig{})

	r := NewRunner(Config{
		Registry:  reg,
		Store:     store,
		Workspace: tool.Workspace{Root: t.TempDir()},
	})
	return r, store
}

func TestExecuteCapturesOutputAndExitCode(t *testing.T) {
	r, store := newTestRunner(t, tool.Descriptor{
		ID:      "echo.hello",
		Title:   "Echo",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo hello; echo oops >&2"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "echo.hello", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stdout != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.Stderr != "oops" {
		t.Errorf("stderr = %q", res.Stderr)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("exit code = %v", res.ExitCode)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.Reason != tool.ReasonManual {
		t.Errorf("reason = %q", res.Reason)
	}

	cached, ok := store.Get("echo.hello")
	if !ok {
		t.Fatal("result not recorded in store")
	}
	if cached.RunID != res.RunID {
		t.Error("store holds a different run")
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "fail.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo broken >&2; exit 7"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "fail.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if res.Success {
		t.Error("expected success=false")
	}
	if res.ExitCode == nil || *res.ExitCode != 7 {
		t.Errorf("exit code = %v", res.ExitCode)
	}
	if res.Stderr != "broken" {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestExecuteTimeout(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "slow.tool",
		Command: "sleep",
		Args:    []string{"5"},
		Enabled: true,
		Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	res, err := r.Execute(context.Background(), tool.Request{ToolID: "slow.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("timeout should not be an error: %v", err)
	}

	if !res.TimedOut {
		t.Error("expected timedOut=true")
	}
	if res.Success {
		t.Error("expected success=false")
	}
	if res.ExitCode != nil {
		t.Errorf("expected nil exit code, got %d", *res.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced promptly: took %v", elapsed)
	}
}

func TestExecuteStdoutCap(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "chatty.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "head -c 30000 /dev/zero | tr '\\0' 'x'"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "chatty.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.StdoutTruncated {
		t.Error("expected stdout truncation flag")
	}
	if len(res.Stdout) != DefaultStdoutCap {
		t.Errorf("stdout length = %d, want %d", len(res.Stdout), DefaultStdoutCap)
	}
	if res.StderrTruncated {
		t.Error("stderr should not be truncated")
	}
	if !res.Success {
		t.Error("capped output should not fail the run")
	}
}

func TestExecuteStructuredOutput(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:         "json.tool",
		Command:    "/bin/sh",
		Args:       []string{"-c", `echo '{"issues": 3}'`},
		Enabled:    true,
		Timeout:    10 * time.Second,
		OutputType: tool.OutputStructured,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "json.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success, parse error: %q", res.ParseError)
	}
	m, ok := res.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", res.Data)
	}
	if m["issues"] != float64(3) {
		t.Errorf("issues = %v", m["issues"])
	}
}

func TestExecuteStructuredParseFailure(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:         "badjson.tool",
		Command:    "/bin/sh",
		Args:       []string{"-c", "echo 'not json at all'"},
		Enabled:    true,
		Timeout:    10 * time.Second,
		OutputType: tool.OutputStructured,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "badjson.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("parse failure should not be an error: %v", err)
	}
	if res.Success {
		t.Error("expected success=false on parse failure")
	}
	if res.ParseError == "" {
		t.Error("expected a parse failure message")
	}
	if res.Stdout != "not json at all" {
		t.Errorf("raw stdout must be preserved, got %q", res.Stdout)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("exit code = %v", res.ExitCode)
	}
}

func TestExecuteShellInterpretation(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "shell.tool",
		Command: "echo one && echo two",
		Enabled: true,
		Shell:   true,
		Timeout: 10 * time.Second,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "shell.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stdout != "one\ntwo" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecuteEnvOverridesWin(t *testing.T) {
	t.Setenv("PROBEKIT_TEST_VAR", "ambient")

	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "env.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo $PROBEKIT_TEST_VAR"},
		Env:     map[string]string{"PROBEKIT_TEST_VAR": "override"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "env.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stdout != "override" {
		t.Errorf("stdout = %q, descriptor env should win", res.Stdout)
	}
}

func TestExecuteWorkingDirectoryChain(t *testing.T) {
	dir := t.TempDir()

	reg := tool.NewRegistry(nil)
	reg.Reload([]tool.Descriptor{
		{
			ID:      "cwd.tool",
			Command: "pwd",
			Cwd:     dir,
			Enabled: true,
			Timeout: 10 * time.Second,
		},
		{
			ID:      "cwd.missing",
			Command: "pwd",
			Cwd:     filepath.Join(dir, "does-not-exist"),
			Enabled: true,
			Timeout: 10 * time.Second,
		},
	}, nil, tool.Workspace{})

	wsRoot := t.TempDir()
	r := NewRunner(Config{
		Registry:  reg,
		Store:     results.NewStore(results.StoreConfig{}),
		Workspace: tool.Workspace{Root: wsRoot},
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "cwd.tool", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(dir); res.Stdout != dir && res.Stdout != resolved {
		t.Errorf("pwd = %q, want %q", res.Stdout, dir)
	}

	res, err = r.Execute(context.Background(), tool.Request{ToolID: "cwd.missing", Reason: tool.ReasonManual})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(wsRoot); res.Stdout != wsRoot && res.Stdout != resolved {
		t.Errorf("pwd = %q, want workspace root %q", res.Stdout, wsRoot)
	}
}

func TestExecuteLaunchFailure(t *testing.T) {
	r, store := newTestRunner(t, tool.Descriptor{
		ID:      "ghost.tool",
		Command: "/no/such/binary-" + filepath.Base(os.Args[0]),
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	_, err := r.Execute(context.Background(), tool.Request{ToolID: "ghost.tool", Reason: tool.ReasonManual})
	if err == nil {
		t.Fatal("expected launch failure")
	}
	if errors.Code(err) != errors.ErrCodeLaunchFailed {
		t.Errorf("code = %s", errors.Code(err))
	}
	if store.Len() != 0 {
		t.Error("no result should be recorded for a failed launch")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r, _ := newTestRunner(t)

	_, err := r.Execute(context.Background(), tool.Request{ToolID: "nope", Reason: tool.ReasonManual})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Code(err) != errors.ErrCodeToolNotFound {
		t.Errorf("code = %s", errors.Code(err))
	}
}

func TestExecuteDedupsConcurrentRequests(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "slowish.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 0.3; echo done"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	const callers = 5
	var wg sync.WaitGroup
	runs := make([]*results.RunResult, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Execute(context.Background(), tool.Request{ToolID: "slowish.tool", Reason: tool.ReasonManual})
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			runs[i] = res
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if runs[i] == nil || runs[0] == nil {
			t.Fatal("missing result")
		}
		if runs[i].RunID != runs[0].RunID {
			t.Errorf("caller %d observed a different run (%s vs %s)", i, runs[i].RunID, runs[0].RunID)
		}
	}
}

func TestExecuteForcedBypassesDedup(t *testing.T) {
	r, _ := newTestRunner(t, tool.Descriptor{
		ID:      "forced.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 0.2; echo done"},
		Enabled: true,
		Timeout: 10 * time.Second,
	})

	started := make(chan struct{})
	var background *results.RunResult
	var bgErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		background, bgErr = r.Execute(context.Background(), tool.Request{ToolID: "forced.tool", Reason: tool.ReasonManual})
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	forced, err := r.Execute(context.Background(), tool.Request{ToolID: "forced.tool", Reason: tool.ReasonManual, Force: true})
	if err != nil {
		t.Fatalf("forced Execute: %v", err)
	}
	wg.Wait()
	if bgErr != nil {
		t.Fatalf("background Execute: %v", bgErr)
	}

	if forced.RunID == background.RunID {
		t.Error("forced run must not share the in-flight result")
	}
	if !forced.StartedAt.After(background.StartedAt) {
		t.Errorf("forced run must start later (forced=%s background=%s)",
			forced.StartedAt.Format(time.RFC3339Nano), background.StartedAt.Format(time.RFC3339Nano))
	}
}

func TestExecuteEmitsOneRunEvent(t *testing.T) {
	exporter := &recordingExporter{}
	reg := tool.NewRegistry(nil)
	reg.Reload([]tool.Descriptor{{
		ID:      "emit.tool",
		Command: "/bin/sh",
		Args:    []string{"-c", "echo out; exit 3"},
		Enabled: true,
		Timeout: 10 * time.Second,
	}}, nil, tool.Workspace{Root: t.TempDir()})

	r := NewRunner(Config{
		Registry:  reg,
		Store:     results.NewStore(results.StoreConfig{}),
		Workspace: tool.Workspace{Root: t.TempDir()},
		Telemetry: exporter,
	})

	res, err := r.Execute(context.Background(), tool.Request{ToolID: "emit.tool", Reason: tool.ReasonAuto})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	events := exporter.events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want one per completed run", len(events))
	}
	ev := events[0]
	if ev.RunID != res.RunID {
		t.Errorf("run id = %q, want %q", ev.RunID, res.RunID)
	}
	if ev.ToolID != "emit.tool" {
		t.Errorf("tool id = %q", ev.ToolID)
	}
	if ev.Reason != string(tool.ReasonAuto) {
		t.Errorf("reason = %q", ev.Reason)
	}
	if ev.Success {
		t.Error("exit 3 must not report success")
	}
	if ev.ExitCode == nil || *ev.ExitCode != 3 {
		t.Errorf("exit code = %v", ev.ExitCode)
	}
	if ev.StartedAt.IsZero() || ev.Timestamp.IsZero() {
		t.Error("expected timestamps on the event")
	}
}

func TestCappedWriter(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		writes    []string
		want      string
		truncated bool
	}{
		{"under cap", 10, []string{"abc", "def"}, "abcdef", false},
		{"exact cap", 6, []string{"abc", "def"}, "abcdef", false},
		{"split write", 4, []string{"abc", "def"}, "abcd", true},
		{"past cap", 3, []string{"abcdef", "x"}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newCappedWriter(tt.capacity)
			for _, s := range tt.writes {
				n, err := w.Write([]byte(s))
				if err != nil || n != len(s) {
					t.Fatalf("Write(%q) = (%d, %v)", s, n, err)
				}
			}
			got, truncated := w.Captured()
			if got != tt.want {
				t.Errorf("captured = %q, want %q", got, tt.want)
			}
			if truncated != tt.truncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.truncated)
			}
		})
	}
}

func TestNormalizeOutput(t *testing.T) {
	if got := normalizeOutput("a\r\nb\r\n"); got != "a\nb" {
		t.Errorf("normalizeOutput = %q", got)
	}
	if got := normalizeOutput("  padded  \n"); got != "padded" {
		t.Errorf("normalizeOutput = %q", got)
	}
}
