package stomp_costs

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultPositionTolerance is used on x, y and z when the goal comes from joint targets.
	// Poses are in mm, so this is 1 µm and errors saturate at 10 µm. Set default_position_tolerance
	// in the config for a coarser goal.
	DefaultPositionTolerance = 0.001
	// DefaultRotationTolerance is used on rx, ry and rz when the goal comes from joint targets, in radians.
	DefaultRotationTolerance = 0.01

	positionMaxErrorRatio = 10.0
	rotationMaxErrorRatio = 10.0
)

// ToleranceVector holds the acceptable deviation per cartesian dof.
type ToleranceVector [cartesianDofSize]float64

// UniformTolerance replicates pos over the translational dofs and rot over the rotational ones.
func UniformTolerance(pos, rot float64) ToleranceVector {
	return ToleranceVector{pos, pos, pos, rot, rot, rot}
}

// Validate rejects negative and non-finite entries.
func (tol ToleranceVector) Validate() error {
	for i, v := range tol {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.Wrapf(ErrInvalidGoalConstraint, "tolerance[%d] must be a finite value >= 0, got %v", i, v)
		}
	}
	return nil
}

// ToleranceBounds is the range over which twist error is scaled. Min is the true tolerance,
// Max is the point at which the error saturates.
type ToleranceBounds struct {
	Min ToleranceVector
	Max ToleranceVector
}

// NewToleranceBounds widens the tolerance by the fixed error ratios. Rotational maxima never exceed pi.
func NewToleranceBounds(tol ToleranceVector) ToleranceBounds {
	b := ToleranceBounds{Min: tol}
	for i := 0; i < 3; i++ {
		b.Max[i] = tol[i] * positionMaxErrorRatio
	}
	for i := 3; i < cartesianDofSize; i++ {
		b.Max[i] = math.Min(tol[i]*rotationMaxErrorRatio, math.Pi)
	}
	return b
}

// Validate returns ErrDegenerateTolerance naming the first dof with a zero-width range.
func (b ToleranceBounds) Validate() error {
	for i := range b.Min {
		if b.Max[i] == b.Min[i] {
			return errors.Wrapf(ErrDegenerateTolerance, "dof %d has min == max == %v", i, b.Min[i])
		}
	}
	return nil
}
