package wheel

import (
	"math"
	"testing"
)

func TestSegmentCenterAngle(t *testing.T) {
	tests := []struct {
		name  string
		index int
		count int
		want  float64
	}{
		{"segment 0 of 8", 0, 8, -67.5},
		{"segment 1 of 8", 1, 8, -22.5},
		{"segment 7 of 8", 7, 8, 247.5},
		{"segment 0 of 4", 0, 4, -45},
		{"segment 2 of 4", 2, 4, 135},
		{"single segment", 0, 1, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentCenterAngle(tt.index, tt.count)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SegmentCenterAngle(%d, %d) = %g, want %g", tt.index, tt.count, got, tt.want)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-450, 270},
		{720.5, 0.5},
		{-0.5, 359.5},
	}

	for _, tt := range tests {
		got := NormalizeAngle(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%g) = %g, want %g", tt.in, got, tt.want)
		}
		if got < 0 || got >= 360 {
			t.Errorf("NormalizeAngle(%g) = %g outside [0, 360)", tt.in, got)
		}
	}
}

func TestAngularDistance(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{0, 0, 0},
		{0, 90, 90},
		{0, 270, 90},
		{0, 180, 180},
		{350, 10, 20},
		{-90, 270, 0},
		{719, 1, 2},
	}

	for _, tt := range tests {
		got := AngularDistance(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngularDistance(%g, %g) = %g, want %g", tt.a, tt.b, got, tt.want)
		}
		if got < 0 || got > 180 {
			t.Errorf("AngularDistance(%g, %g) = %g outside [0, 180]", tt.a, tt.b, got)
		}
	}
}
