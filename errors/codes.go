package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: persistence write failure, telemetry sink unreachable.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown tool id, disabled tool, malformed declaration.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion.
	// Examples: process table full, output cap exceeded.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for orchestration failures.
const (
	// Configuration failures. These reject a call before any process is
	// spawned and never produce a RunResult.
	ErrCodeToolNotFound  ErrorCode = "TOOL_NOT_FOUND" // No descriptor resolved for the id
	ErrCodeToolDisabled  ErrorCode = "TOOL_DISABLED"  // Descriptor exists but is disabled
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG" // Malformed tool declaration

	// Launch failures. The OS refused to create the process; also rejects
	// the call with no RunResult recorded for the attempt.
	ErrCodeLaunchFailed ErrorCode = "LAUNCH_FAILED"

	// Failures folded into RunResult rather than raised.
	ErrCodeTimeout     ErrorCode = "TIMEOUT"      // Execution exceeded its deadline
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED" // Structured output did not decode

	// Infrastructure failures, logged not raised.
	ErrCodePersistence ErrorCode = "PERSISTENCE" // Durable store rejected a write
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Collaborator temporarily unreachable

	// Generic failures.
	ErrCodeCanceled ErrorCode = "CANCELED" // Context was canceled
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodePersistence, ErrCodeUnavailable:
		return CategoryTransient
	case ErrCodeToolNotFound, ErrCodeToolDisabled, ErrCodeInvalidConfig,
		ErrCodeLaunchFailed, ErrCodeParseFailed, ErrCodeCanceled:
		return CategoryPermanent
	case ErrCodeInternal, ErrCodePanic:
		return CategoryInternal
	default:
		return CategoryInternal
	}
}

// RejectsCall reports whether this code represents a failure that propagates
// to the caller instead of being recorded as a RunResult.
func (c ErrorCode) RejectsCall() bool {
	switch c {
	case ErrCodeToolNotFound, ErrCodeToolDisabled, ErrCodeLaunchFailed, ErrCodeInvalidConfig:
		return true
	default:
		return false
	}
}
