package stomp_costs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleComponent(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		lo, hi   float64
		expected float64
	}{
		{"inside tolerance", 0.05, 0.1, 1, 0},
		{"at min", 0.1, 0.1, 1, 0},
		{"interior", 0.55, 0.1, 1, 0.5},
		{"interior negative", -0.55, 0.1, 1, -0.5},
		{"at max", 1, 0.1, 1, 1},
		{"saturated", 7, 0.1, 1, 1},
		{"saturated negative", -7, 0.1, 1, -1},
		{"zero width inside", 0.1, 0.1, 0.1, 0},
		{"zero width outside", 0.2, 0.1, 0.1, 1},
		{"zero width outside negative", -0.2, 0.1, 0.1, -1},
		{"zero tolerance exact", 0, 0, 0, 0},
		// Inverted bounds: the upper clamp wins when the magnitude exceeds hi.
		{"inverted above both", 3, 2, 1, 1},
		{"inverted between", 1.5, 2, 1, 1},
		{"inverted below both", 0.5, 2, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scaleComponent(tt.v, tt.lo, tt.hi), 1e-12)
		})
	}
}

func TestScaleError(t *testing.T) {
	bounds := NewToleranceBounds(UniformTolerance(1, 0.1))
	tw := Twist{-5.5, 2, 0, 0, 0.55, -2}

	s := ScaleError(tw, bounds)
	assert.InDelta(t, -0.5, s.Components[0], 1e-12)
	assert.InDelta(t, 1.0/9, s.Components[1], 1e-12)
	assert.InDelta(t, 0.5, s.Components[4], 1e-12)
	assert.InDelta(t, -1, s.Components[5], 1e-12)
	assert.InDelta(t, 0.5, s.Position, 1e-12)
	assert.InDelta(t, 1, s.Orientation, 1e-12)
}

func TestScaleErrorWithinTolerance(t *testing.T) {
	bounds := NewToleranceBounds(UniformTolerance(1, 0.1))
	s := ScaleError(Twist{0.5, -1, 0.2, 0.05, -0.1, 0}, bounds)
	assert.Equal(t, 0.0, s.Position)
	assert.Equal(t, 0.0, s.Orientation)
}
