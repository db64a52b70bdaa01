// Package errors provides error handling for the rule deployment tools.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Sentinel marking with errors.Mark / errors.Is
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrConfiguration) {
//	    // broken config, abort the run
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	WithHint     = crdb.WithHint
	WithDetail   = crdb.WithDetail
	Mark         = crdb.Mark
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors classifying failures per the orchestration policy.
// Mark errors with these (or wrap them) so callers can route on kind.
var (
	// ErrConfiguration indicates a broken configuration: missing project
	// root, escape from the project root, missing job name, absolute input
	// or pipeline paths, or an empty resolved file set. Fatal for the run.
	ErrConfiguration = New("configuration error")

	// ErrInvocation indicates the compilation engine reported a failure
	// for one conversion. Isolated: the run continues with the next job.
	ErrInvocation = New("conversion invocation failed")
)

// Configurationf creates a fatal configuration error with a formatted message.
func Configurationf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfiguration)
}

// WrapConfiguration wraps an error as a fatal configuration error with context.
func WrapConfiguration(err error, msg string) error {
	return Mark(Wrap(err, msg), ErrConfiguration)
}

// Invocationf creates an isolated per-job invocation error with a formatted message.
func Invocationf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvocation)
}

// IsConfigurationError checks if an error is or is marked as ErrConfiguration.
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsInvocationError checks if an error is or is marked as ErrInvocation.
func IsInvocationError(err error) bool {
	return err != nil && Is(err, ErrInvocation)
}
