// Package apperr holds the error kinds shared by the analysis pipeline and
// the rules for turning them into response classes at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks user-correctable input problems such as an
	// unsupported file type or an oversized image.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSecurityViolation marks a credentialed step invoked outside the
	// trusted server runtime.
	ErrSecurityViolation = errors.New("security violation")
	// ErrUpstream marks a transport or status failure from a backend.
	ErrUpstream = errors.New("upstream failure")
	// ErrParse marks a backend payload with an unexpected shape.
	ErrParse = errors.New("parse failure")
	// ErrConfiguration marks a missing credential at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnauthorized marks a submission without a verified owner identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// UpstreamError carries the backend status and raw body for operators.
type UpstreamError struct {
	Backend    string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s upstream error", e.Backend)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, truncate(e.Body, 512))
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUpstream) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// inputError keeps the user-facing message separate from any wrapping
// added on the way up.
type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput builds an ErrInvalidInput whose message is shown verbatim.
func InvalidInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// Parse wraps a detail message in ErrParse.
func Parse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Configuration wraps a detail message in ErrConfiguration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// SecurityViolation wraps a detail message in ErrSecurityViolation.
func SecurityViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSecurityViolation, fmt.Sprintf(format, args...))
}

// Unauthorized wraps a detail message in ErrUnauthorized.
func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// Kind returns a short stable label for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrSecurityViolation):
		return "security_violation"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// Class is the response class shown to end users.
type Class string

const (
	ClassAnalysisFailed     Class = "analysis_failed"
	ClassServiceUnavailable Class = "service_unavailable"
	ClassUnauthorized       Class = "unauthorized"
	ClassInternal           Class = "internal_error"
)

// Classify maps an error to its end-user response class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return ClassUnauthorized
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrParse):
		return ClassAnalysisFailed
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrConfiguration):
		return ClassServiceUnavailable
	default:
		return ClassInternal
	}
}

// UserMessage returns the text safe to show to end users. Only input errors
// are reported verbatim.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "missing or invalid token"
	case errors.Is(err, ErrInvalidInput):
		var in *inputError
		if errors.As(err, &in) {
			return in.msg
		}
		return err.Error()
	case errors.Is(err, ErrParse):
		return "The analysis result could not be interpreted. Please try again with another photo."
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrConfiguration):
		return "The analysis service is temporarily unavailable. Please try again later."
	default:
		return "Unexpected server error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
