package domain

import (
	"errors"
	"fmt"
)

// InsufficientDataError reports a return series with too few observations
// for the requested statistic.
type InsufficientDataError struct {
	Periods  int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d periods supplied, %d required", e.Periods, e.Required)
}

// InfeasibleConstraintsError reports an optimization problem whose feasible
// region is empty. Constraint names the binding constraint.
type InfeasibleConstraintsError struct {
	Constraint string
	Detail     string
}

func (e *InfeasibleConstraintsError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("infeasible constraints: %s", e.Constraint)
	}
	return fmt.Sprintf("infeasible constraints: %s (%s)", e.Constraint, e.Detail)
}

// DegenerateVarianceError reports a zero-variance portfolio where a
// volatility-normalized metric was requested.
type DegenerateVarianceError struct {
	Metric string
}

func (e *DegenerateVarianceError) Error() string {
	return fmt.Sprintf("degenerate variance: portfolio standard deviation is zero, cannot compute %s", e.Metric)
}

// CancelledError reports a computation abandoned because the caller's
// context was cancelled. Partial results are always discarded.
type CancelledError struct {
	Stage string
	Err   error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled during %s: %v", e.Stage, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is (or wraps) a CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
