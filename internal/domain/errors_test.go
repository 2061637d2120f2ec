package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "insufficient data",
			err:      &InsufficientDataError{Periods: 1, Required: 2},
			contains: "1 periods supplied, 2 required",
		},
		{
			name:     "infeasible with detail",
			err:      &InfeasibleConstraintsError{Constraint: "target_return", Detail: "target too high"},
			contains: "target_return (target too high)",
		},
		{
			name:     "infeasible without detail",
			err:      &InfeasibleConstraintsError{Constraint: "max_weight_per_asset"},
			contains: "max_weight_per_asset",
		},
		{
			name:     "degenerate variance",
			err:      &DegenerateVarianceError{Metric: "sharpe_ratio"},
			contains: "cannot compute sharpe_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestCancelledError_Unwrap(t *testing.T) {
	cause := context.Canceled
	err := &CancelledError{Stage: "optimizer", Err: cause}

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, err.Error(), "optimizer")
}

func TestIsCancelled(t *testing.T) {
	inner := &CancelledError{Stage: "frontier", Err: context.Canceled}
	wrapped := fmt.Errorf("frontier: %w", inner)

	assert.True(t, IsCancelled(inner))
	assert.True(t, IsCancelled(wrapped))
	assert.False(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(nil))
}
