package runner

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/triagekit/probekit/errors"
	"github.com/triagekit/probekit/logging"
	"github.com/triagekit/probekit/results"
	"github.com/triagekit/probekit/telemetry"
	"github.com/triagekit/probekit/tool"
)

// Config configures a Runner.
type Config struct {
	// Registry resolves tool ids to descriptors (required).
	Registry *tool.Registry

	// Store receives every completed RunResult (required).
	Store *results.Store

	// Workspace supplies the working-directory fallback chain.
	Workspace tool.Workspace

	// Telemetry receives a fire-and-forget event per run.
	// Defaults to a noop exporter.
	Telemetry telemetry.Exporter

	// Logger for run lifecycle messages.
	Logger *logging.Logger

	// StdoutCap / StderrCap override the per-stream capture caps in
	// bytes. Zero means the package default.
	StdoutCap int
	StderrCap int
}

// Runner executes resolved tool descriptors as child processes.
type Runner struct {
	registry  *tool.Registry
	store     *results.Store
	workspace tool.Workspace
	exporter  telemetry.Exporter
	log       *logging.Logger
	guard     *guard
	stdoutCap int
	stderrCap int
}

// NewRunner creates a runner with the given configuration.
func NewRunner(cfg Config) *Runner {
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.NewNoopExporter()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.StdoutCap <= 0 {
		cfg.StdoutCap = DefaultStdoutCap
	}
	if cfg.StderrCap <= 0 {
		cfg.StderrCap = DefaultStderrCap
	}
	return &Runner{
		registry:  cfg.Registry,
		store:     cfg.Store,
		workspace: cfg.Workspace,
		exporter:  cfg.Telemetry,
		log:       cfg.Logger.WithComponent("runner"),
		guard:     newGuard(),
		stdoutCap: cfg.StdoutCap,
		stderrCap: cfg.StderrCap,
	}
}

// Execute resolves and runs the requested tool.
//
// Non-forced requests for an id with a run already in flight attach to
// that run and return its result. Errors are returned only for
// configuration problems (TOOL_NOT_FOUND, TOOL_DISABLED) and launch
// failures (LAUNCH_FAILED); timeouts, non-zero exits, and parse failures
// come back as a RunResult with Success=false.
func (r *Runner) Execute(ctx context.Context, req tool.Request) (*results.RunResult, error) {
	desc, err := r.registry.Resolve(req.ToolID)
	if err != nil {
		return nil, err
	}

	r.log.RunStart(desc.ID, string(req.Reason), req.Force)

	return r.guard.run(desc.ID, req.Force, func() (*results.RunResult, error) {
		res, err := r.spawn(ctx, desc, req.Reason)
		if err != nil {
			return nil, err
		}

		r.store.Put(res)
		r.emit(res)
		r.log.RunComplete(res.ID, res.Success, res.Duration)
		return res, nil
	})
}

// emit reports a completed run to the telemetry exporter. Export is
// fire-and-forget: it never fails the run.
func (r *Runner) emit(res *results.RunResult) {
	r.exporter.LogRun(telemetry.RunEvent{
		RunID:           res.RunID,
		ToolID:          res.ID,
		Reason:          string(res.Reason),
		Success:         res.Success,
		TimedOut:        res.TimedOut,
		ExitCode:        res.ExitCode,
		StdoutTruncated: res.StdoutTruncated,
		StderrTruncated: res.StderrTruncated,
		Duration:        res.Duration,
		StartedAt:       res.StartedAt,
		Timestamp:       time.Now(),
	})
}

// spawn runs a single child process to completion and normalizes the
// outcome. The returned error is non-nil only when the OS could not
// create the process.
func (r *Runner) spawn(ctx context.Context, desc tool.Descriptor, reason tool.Reason) (*results.RunResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if desc.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
	}

	tracer := telemetry.GetTracer()
	runCtx, span := tracer.StartRunSpan(runCtx, desc.ID)

	var cmd *exec.Cmd
	if desc.Shell {
		script := desc.Command
		if len(desc.Args) > 0 {
			script += " " + strings.Join(desc.Args, " ")
		}
		cmd = exec.CommandContext(runCtx, "/bin/sh", "-c", script)
	} else {
		cmd = exec.CommandContext(runCtx, desc.Command, desc.Args...)
	}

	cmd.Dir = r.workingDir(desc)
	cmd.Env = buildEnv(desc.Env)

	stdout := newCappedWriter(r.stdoutCap)
	stderr := newCappedWriter(r.stderrCap)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		launchErr := errors.New(errors.ErrCodeLaunchFailed,
			"failed to start process for tool "+desc.ID,
			errors.WithCause(err),
			errors.WithToolID(desc.ID),
		)
		tracer.EndRunSpan(span, telemetry.RunSpanOptions{Reason: string(reason)}, launchErr)
		return nil, launchErr
	}

	waitErr := cmd.Wait()
	duration := time.Since(started)
	timedOut := runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil

	outText, outTruncated := stdout.Captured()
	errText, errTruncated := stderr.Captured()

	res := &results.RunResult{
		RunID:           uuid.NewString(),
		ID:              desc.ID,
		Title:           desc.Title,
		Command:         desc.Command,
		Args:            append([]string(nil), desc.Args...),
		Stdout:          normalizeOutput(outText),
		Stderr:          normalizeOutput(errText),
		StdoutTruncated: outTruncated,
		StderrTruncated: errTruncated,
		TimedOut:        timedOut,
		Reason:          reason,
		StartedAt:       started,
		Duration:        duration,
		Provenance:      desc.Provenance,
	}

	if !timedOut {
		code := exitCode(waitErr)
		res.ExitCode = &code
		res.Success = code == 0
	}

	if desc.OutputType == tool.OutputStructured && res.Stdout != "" {
		var data interface{}
		if err := json.Unmarshal([]byte(res.Stdout), &data); err != nil {
			res.ParseError = err.Error()
			res.Success = false
		} else {
			res.Data = data
		}
	}

	tracer.EndRunSpan(span, telemetry.RunSpanOptions{
		RunID:    res.RunID,
		Reason:   string(reason),
		Success:  res.Success,
		TimedOut: res.TimedOut,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Command:  desc.Command,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}, nil)

	return res, nil
}

// workingDir picks the child's working directory: the descriptor's cwd
// when it exists, else the workspace root, else the runner's own cwd
// (exec's default when Dir is empty).
func (r *Runner) workingDir(desc tool.Descriptor) string {
	if desc.Cwd != "" {
		if info, err := os.Stat(desc.Cwd); err == nil && info.IsDir() {
			return desc.Cwd
		}
		r.log.Warn("tool cwd does not exist, falling back to workspace root",
			map[string]interface{}{"tool_id": desc.ID, "cwd": desc.Cwd})
	}
	return r.workspace.EffectiveRoot()
}

// buildEnv overlays descriptor overrides on the ambient environment.
// Later entries win on key collision, so overrides go last.
func buildEnv(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// exitCode maps a Wait error to the process exit code. A nil error is
// exit 0; errors without a usable state report -1.
func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if ee, ok := waitErr.(*exec.ExitError); ok && ee.ProcessState != nil {
		return ee.ProcessState.ExitCode()
	}
	return -1
}

// normalizeOutput converts CRLF line endings and trims surrounding
// whitespace from captured text.
func normalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
