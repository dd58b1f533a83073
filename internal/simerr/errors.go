// Package simerr defines the error taxonomy shared by the estimators and the
// replication orchestrator.
//
// Numerical failures inside a replication (DegenerateSampleError,
// LinearAlgebraError, BootstrapFailureError) are recoverable: the orchestrator
// discards the draw and redraws. InvalidConfigurationError and
// RedrawBudgetError are fatal and abort the run.
package simerr

import (
	"errors"
	"fmt"
)

// DegenerateSampleError reports a dataset or resample that lacks the
// variation needed to fit a model, e.g. only one treatment arm.
type DegenerateSampleError struct {
	Reason string
}

func (e *DegenerateSampleError) Error() string {
	return "degenerate sample: " + e.Reason
}

// Degenerate builds a DegenerateSampleError from a format string.
func Degenerate(format string, args ...any) error {
	return &DegenerateSampleError{Reason: fmt.Sprintf(format, args...)}
}

// LinearAlgebraError reports a matrix that is singular to working precision.
type LinearAlgebraError struct {
	Op  string
	Err error
}

func (e *LinearAlgebraError) Error() string {
	if e.Err == nil {
		return "linear algebra: " + e.Op
	}
	return fmt.Sprintf("linear algebra: %s: %v", e.Op, e.Err)
}

func (e *LinearAlgebraError) Unwrap() error { return e.Err }

// BootstrapFailureError reports that too few usable bootstrap resamples were
// obtained within the retry budget.
type BootstrapFailureError struct {
	Usable   int
	Attempts int
}

func (e *BootstrapFailureError) Error() string {
	return fmt.Sprintf("bootstrap failed: %d usable resamples after %d discarded attempts", e.Usable, e.Attempts)
}

// InvalidConfigurationError reports malformed scenario parameters.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// InvalidConfig builds an InvalidConfigurationError for field.
func InvalidConfig(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RedrawBudgetError reports a replication that could not produce a valid
// draw within the configured number of redraws.
type RedrawBudgetError struct {
	Scenario    string
	Replication int
	Redraws     int
	Last        error
}

func (e *RedrawBudgetError) Error() string {
	return fmt.Sprintf("scenario %s: replication %d: redraw budget of %d exhausted: %v",
		e.Scenario, e.Replication, e.Redraws, e.Last)
}

func (e *RedrawBudgetError) Unwrap() error { return e.Last }

// Recoverable reports whether err is a per-replication numerical failure that
// should trigger a redraw rather than abort the run.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	var budget *RedrawBudgetError
	if errors.As(err, &budget) {
		return false
	}
	var (
		degenerate *DegenerateSampleError
		linalg     *LinearAlgebraError
		bootstrap  *BootstrapFailureError
	)
	return errors.As(err, &degenerate) || errors.As(err, &linalg) || errors.As(err, &bootstrap)
}

// Reason returns a short label for a recoverable error, used for metrics and
// event logs.
func Reason(err error) string {
	var (
		degenerate *DegenerateSampleError
		linalg     *LinearAlgebraError
		bootstrap  *BootstrapFailureError
	)
	switch {
	case errors.As(err, &degenerate):
		return "degenerate"
	case errors.As(err, &linalg):
		return "linalg"
	case errors.As(err, &bootstrap):
		return "bootstrap"
	default:
		return "other"
	}
}
