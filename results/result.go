package results

import (
	"time"

	"github.com/triagekit/probekit/tool"
)

// RunResult is the normalized record of one tool execution. The command and
// args are the resolved values actually executed, post token substitution.
// All fields are optional in the persisted form; absent fields decode to
// their zero values.
type RunResult struct {
	// RunID uniquely identifies this execution.
	RunID string `json:"run_id,omitempty"`

	// ID is the tool id the result is cached under.
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`

	// Resolved invocation.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	// Captured output, size-capped per stream.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Data holds the decoded payload for structured tools when parsing
	// succeeded; ParseError holds the failure message when it did not.
	// Raw stdout is preserved either way.
	Data       interface{} `json:"data,omitempty"`
	ParseError string      `json:"parse_error,omitempty"`

	// ExitCode is nil when the process was killed for timeout.
	ExitCode *int `json:"exit_code,omitempty"`

	// Success is false whenever the run timed out or structured parsing
	// failed, regardless of exit code.
	Success bool `json:"success"`

	StdoutTruncated bool `json:"stdout_truncated,omitempty"`
	StderrTruncated bool `json:"stderr_truncated,omitempty"`
	TimedOut        bool `json:"timed_out,omitempty"`

	Reason     tool.Reason     `json:"reason,omitempty"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	Duration   time.Duration   `json:"duration,omitempty"`
	Provenance tool.Provenance `json:"provenance,omitempty"`
}

// Age returns how long ago the run started, relative to now.
func (r *RunResult) Age(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}

// Clone returns a deep-enough copy for safe hand-off across goroutines.
// Data is shared; the engine never mutates a payload after decoding it.
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Args != nil {
		out.Args = append([]string(nil), r.Args...)
	}
	if r.ExitCode != nil {
		code := *r.ExitCode
		out.ExitCode = &code
	}
	return &out
}
