// Package errors provides the structured error taxonomy for probekit.
// It classifies orchestration failures so callers can tell, without string
// matching, whether a failure rejected the call outright or was folded into
// a normally returned run result.
//
// # Error Categories
//
// Errors fall into four categories:
//
//   - Transient: temporary failures where retry may succeed (persistence
//     write failed, sink unreachable)
//   - Permanent: failures where retry will not help (unknown tool id,
//     disabled tool, invalid configuration)
//   - Resource: exhaustion issues (output cap reached, process table full)
//   - Internal: unexpected errors indicating bugs
//
// # Error Codes
//
// Each error carries a code identifying the failure:
//
//   - TOOL_NOT_FOUND: no resolved descriptor for the requested id
//   - TOOL_DISABLED: the descriptor exists but is disabled
//   - LAUNCH_FAILED: the operating system could not create the process
//   - TIMEOUT: an operation exceeded its deadline
//   - PARSE_FAILED: structured output could not be decoded
//   - PERSISTENCE: the durable store rejected a write
//   - INVALID_CONFIG: a tool declaration is malformed
//
// Only TOOL_NOT_FOUND, TOOL_DISABLED and LAUNCH_FAILED propagate as call
// failures from the orchestrator; every other failure kind is delivered
// inside a RunResult so callers inspect failed runs without exception
// handling.
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeToolNotFound, "no such tool")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "resolving descriptor")
//
// Check a code anywhere in a chain:
//
//	if errors.Is(err, errors.ErrCodeToolDisabled) {
//	    // surface a configuration problem, not a run failure
//	}
package errors
