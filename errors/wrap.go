package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already an OrchestrationError, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already an OrchestrationError, preserve its properties
	var oerr *Error
	if errors.As(err, &oerr) {
		wrapped := &Error{
			code:      oerr.code,
			category:  oerr.category,
			message:   message,
			cause:     err,
			metadata:  oerr.Metadata(),
			retryable: oerr.retryable,
			toolID:    oerr.toolID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsOrchestrationError attempts to extract an OrchestrationError from a chain.
// Returns nil if none is found.
func AsOrchestrationError(err error) OrchestrationError {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.Retryable()
	}
	// Default to not retryable for plain errors
	return false
}

// RejectsCall reports whether the error is one of the narrow set that
// propagates to callers (configuration and launch failures). Every other
// failure kind belongs inside a RunResult.
func RejectsCall(err error) bool {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.RejectsCall()
	}
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not an OrchestrationError.
func Code(err error) ErrorCode {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
func Category(err error) ErrorCategory {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Join combines multiple errors into a single error.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
