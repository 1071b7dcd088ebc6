package wheel

import (
	"fmt"

	"github.com/spindriftlabs/prizewheel/internal/engine"
)

const (
	// MinFullSpins and MaxFullSpins bound the extra full revolutions added
	// for visual effect (inclusive).
	MinFullSpins = 4
	MaxFullSpins = 5
)

// SpinPlan is the rotation target for one spin.
type SpinPlan struct {
	TargetRotation float64 `json:"target_rotation"`
	FullSpins      int     `json:"full_spins"`
}

// Plan computes the next target rotation such that, once applied, the
// center of the target segment sits under the pointer.
//
// The plan is always a forward rotation anchored on the wheel's actual
// current rotation: the minimal delta in [0, 360) that brings the segment
// under the pointer, plus a random number of full revolutions. Rotation is
// never reduced mod 360 here; anchoring every plan on the accumulated
// value is what keeps consecutive spins drift-free.
//
// The full-spin count is drawn from rng, which must be a stream separate
// from any used for outcome selection.
func Plan(currentRotation float64, targetSegmentIndex, segmentCount int, rng *engine.Stream) (SpinPlan, error) {
	if segmentCount < 1 {
		return SpinPlan{}, fmt.Errorf("segment count must be >= 1, got %d", segmentCount)
	}
	if targetSegmentIndex < 0 || targetSegmentIndex >= segmentCount {
		return SpinPlan{}, fmt.Errorf(
			"target segment %d out of range [0, %d)", targetSegmentIndex, segmentCount)
	}

	originalCenter := SegmentCenterAngle(targetSegmentIndex, segmentCount)
	currentCenter := NormalizeAngle(originalCenter + currentRotation)
	delta := NormalizeAngle(PointerAngle - currentCenter)

	fullSpins := MinFullSpins
	if rng != nil {
		fullSpins = rng.IntBetween(MinFullSpins, MaxFullSpins)
	}

	return SpinPlan{
		TargetRotation: currentRotation + float64(fullSpins)*360 + delta,
		FullSpins:      fullSpins,
	}, nil
}

// InitialAlignment returns the rotation that pre-positions a segment under
// the pointer at load time, with no extra revolutions. Same formula as
// Plan with zero current rotation and zero full spins.
func InitialAlignment(index, count int) (float64, error) {
	if count < 1 {
		return 0, fmt.Errorf("segment count must be >= 1, got %d", count)
	}
	if index < 0 || index >= count {
		return 0, fmt.Errorf("segment %d out of range [0, %d)", index, count)
	}
	return NormalizeAngle(PointerAngle - SegmentCenterAngle(index, count)), nil
}
