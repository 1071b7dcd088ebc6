package wheel

import (
	"fmt"

	"github.com/spindriftlabs/prizewheel/internal/engine"
)

// Selection is the result of one weighted draw against an outcome table.
type Selection struct {
	Index      int       `json:"index"`
	SeedUsed   uint32    `json:"seed_used"`
	Cumulative []float64 `json:"cumulative"`
}

// Select draws one outcome from the table using a seed from the secure
// source. The seed used is echoed back so the draw can be replayed.
func Select(table *OutcomeTable) (Selection, error) {
	seed, err := engine.NewSeed()
	if err != nil {
		return Selection{}, err
	}
	return SelectSeeded(table, seed)
}

// SelectSeeded draws one outcome using the given seed verbatim. Calling it
// twice with the same table and seed always returns the same selection.
//
// The selection consumes exactly one float from a stream created for this
// call, so no two selections ever share generator state.
func SelectSeeded(table *OutcomeTable, seed uint32) (Selection, error) {
	if table == nil {
		return Selection{}, &ValidationError{err: fmt.Errorf("outcome table is nil")}
	}
	if table.Len() < MinOutcomes || table.Len() > MaxOutcomes {
		return Selection{}, &ValidationError{err: fmt.Errorf(
			"outcome count must be in [%d, %d], got %d", MinOutcomes, MaxOutcomes, table.Len())}
	}

	cumulative := table.Cumulative()
	roll := engine.NewStream(seed).NextFloat()

	// Walk the prefix sums. If float error leaves the roll above the final
	// cumulative value, the last outcome wins; selection never fails on a
	// valid table.
	index := table.Len() - 1
	for i, c := range cumulative {
		if roll <= c {
			index = i
			break
		}
	}

	return Selection{
		Index:      index,
		SeedUsed:   seed,
		Cumulative: cumulative,
	}, nil
}
