// Package errors provides standardized error handling for the domain-search
// core. It includes error classification, standard error variables, and helper
// functions for consistent error wrapping across the system.
//
// Every surfaced error carries a machine-readable code, a retryable flag, and
// a human-readable suggested next action so a thin presentation layer can
// decide whether to auto-retry or tell the user to act.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Lookup pipeline errors
	ErrNoSourceAvailable = errors.New("no source available")
	ErrInvalidDomain     = errors.New("invalid domain name")
	ErrUnsupportedTLD    = errors.New("TLD not supported by any source")

	// Upstream call errors
	ErrRateLimited          = errors.New("rate limited")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrCallTimeout          = errors.New("upstream call timed out")

	// Circuit breaker and retry errors
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// Resource errors
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrResourceExhausted = errors.New("resource exhausted")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification and presentation
// metadata. Code is a stable machine-readable identifier; Suggestion tells
// the caller what to do next.
type ClassifiedError struct {
	Class      ErrorClass
	Code       string
	Err        error
	Message    string
	Component  string
	Operation  string
	Suggestion string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Retryable reports whether the error is worth retrying. Only transient
// errors are retryable; invalid input and fatal configuration problems
// never are.
func (ce *ClassifiedError) Retryable() bool {
	return ce.Class == ErrorTransient
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrCallTimeout) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	// Check error message for common transient patterns
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"busy",
		"retry",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrResourceExhausted) ||
		errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	if errors.Is(err, ErrInvalidDomain) ||
		errors.Is(err, ErrUnsupportedTLD) {
		return true
	}

	return false
}

// IsRetryable reports whether an error is worth retrying at the caller's
// layer. A circuit-open error is transient but carries its own recovery
// timer, so it is excluded here: retry belongs to the breaker, not to
// caller backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return IsTransient(err)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// CodeOf returns the machine-readable code carried by a classified error,
// or "unknown" when the error has none.
func CodeOf(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	return "unknown"
}

// SuggestionOf returns the suggested next action carried by a classified
// error, or the empty string.
func SuggestionOf(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* and Coded helpers instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Coded creates a classified error carrying a machine-readable code and a
// suggested next action. Use this for errors that cross the library
// boundary to callers.
func Coded(class ErrorClass, code string, err error, suggestion string) *ClassifiedError {
	ce := newClassified(class, err, "", "", "")
	ce.Code = code
	ce.Suggestion = suggestion
	return ce
}
