// Package wheel implements the deterministic spin engine behind the prize
// wheel widget: weighted outcome selection, segment geometry, rotation
// planning and the timed spin state machine. Rendering is someone else's
// job; this package only guarantees that the winning segment ends up under
// the pointer.
package wheel

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	// MinOutcomes and MaxOutcomes bound the table size (inclusive).
	MinOutcomes = 3
	MaxOutcomes = 8

	// ProbabilityTolerance is the absolute tolerance on the probability sum.
	ProbabilityTolerance = 1e-6
)

// Outcome is one weighted entry of the wheel. Payload fields (label, kind,
// payout) are opaque to the engine and carried through untouched.
type Outcome struct {
	Label       string
	Kind        string
	Payout      decimal.Decimal
	Probability float64
}

// OutcomeTable is an ordered, validated set of weighted outcomes. It is
// immutable once constructed; build a new one to change the wheel.
type OutcomeTable struct {
	outcomes   []Outcome
	cumulative []float64
}

// ValidationError reports a malformed outcome table. It wraps every
// violation found, not just the first one.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid outcome table: %v", e.err)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// NewOutcomeTable validates the outcomes and builds the cumulative
// probability array. All violations are checked up front so a bad table
// fails the same way every time, independent of any random draw.
func NewOutcomeTable(outcomes []Outcome) (*OutcomeTable, error) {
	var errs error

	if len(outcomes) < MinOutcomes || len(outcomes) > MaxOutcomes {
		errs = multierr.Append(errs, fmt.Errorf(
			"outcome count must be in [%d, %d], got %d", MinOutcomes, MaxOutcomes, len(outcomes)))
	}

	sum := 0.0
	for i, o := range outcomes {
		if o.Probability <= 0 || o.Probability > 1 {
			errs = multierr.Append(errs, fmt.Errorf(
				"outcome %d: probability must be in (0, 1], got %g", i, o.Probability))
		}
		sum += o.Probability
	}

	if len(outcomes) > 0 && math.Abs(sum-1.0) > ProbabilityTolerance {
		errs = multierr.Append(errs, fmt.Errorf(
			"probabilities must sum to 1.0 within %g, got %g", ProbabilityTolerance, sum))
	}

	if errs != nil {
		return nil, &ValidationError{err: errs}
	}

	t := &OutcomeTable{
		outcomes:   make([]Outcome, len(outcomes)),
		cumulative: make([]float64, len(outcomes)),
	}
	copy(t.outcomes, outcomes)

	acc := 0.0
	for i, o := range outcomes {
		acc += o.Probability
		t.cumulative[i] = acc
	}

	return t, nil
}

// Len returns the number of outcomes, which is also the segment count.
func (t *OutcomeTable) Len() int {
	return len(t.outcomes)
}

// Outcome returns the outcome at index i.
func (t *OutcomeTable) Outcome(i int) Outcome {
	return t.outcomes[i]
}

// Cumulative returns a copy of the cumulative probability array.
func (t *OutcomeTable) Cumulative() []float64 {
	out := make([]float64, len(t.cumulative))
	copy(out, t.cumulative)
	return out
}
