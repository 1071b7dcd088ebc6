package wheel

import "math"

// PointerAngle is the fixed angle the winning segment must land under:
// 12 o'clock in a coordinate system where 0° is 3 o'clock.
const PointerAngle = -90.0

// SegmentCenterAngle returns the angular center of a segment in degrees,
// assuming zero accumulated rotation. Segment 0 begins at the top of the
// wheel, hence the -90 offset.
func SegmentCenterAngle(index, count int) float64 {
	segment := 360.0 / float64(count)
	return float64(index)*segment + segment/2 - 90
}

// NormalizeAngle maps any angle into [0, 360).
func NormalizeAngle(angle float64) float64 {
	return math.Mod(math.Mod(angle, 360)+360, 360)
}

// AngularDistance returns the shortest circular distance between two
// angles, in [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}
