package stomp_costs

import "math"

// ScaledError is the twist error normalized against the tolerance bounds.
type ScaledError struct {
	// Components carry the sign of the raw twist; magnitudes lie in [0, 1].
	Components  [cartesianDofSize]float64
	Position    float64
	Orientation float64
}

// ScaleError normalizes each twist component between its min and max bound and reduces the
// result to one position and one orientation error.
func ScaleError(tw Twist, bounds ToleranceBounds) ScaledError {
	var s ScaledError
	for i, v := range tw {
		s.Components[i] = scaleComponent(v, bounds.Min[i], bounds.Max[i])
	}
	s.Position = maxAbs(s.Components[:3])
	s.Orientation = maxAbs(s.Components[3:])
	return s
}

// scaleComponent scales the magnitude of v into [0, 1] over [lo, hi].
//
// Both clamps are decided on the unclamped magnitude. When the bounds are inverted
// (hi < lo) and both apply, the upper clamp wins and the component saturates at 1.
// A zero-width range scales to 0 inside the tolerance and 1 outside it.
func scaleComponent(v, lo, hi float64) float64 {
	mag := math.Abs(v)

	clamped := mag
	switch {
	case mag > hi:
		clamped = hi
	case mag < lo:
		clamped = lo
	}

	var scaled float64
	if hi == lo {
		if mag > lo {
			scaled = 1
		}
	} else {
		scaled = (clamped - lo) / (hi - lo)
	}
	return math.Copysign(scaled, v)
}

func maxAbs(vals []float64) float64 {
	m := 0.0
	for _, v := range vals {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
