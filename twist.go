package stomp_costs

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

const cartesianDofSize = 6

// Twist is a pose error: x, y, z translation followed by rx, ry, rz rotation in radians.
type Twist [cartesianDofSize]float64

// Linear returns the translational part of the twist.
func (t Twist) Linear() r3.Vector {
	return r3.Vector{X: t[0], Y: t[1], Z: t[2]}
}

// Angular returns the rotational part of the twist as an axis-angle vector.
func (t Twist) Angular() r3.Vector {
	return r3.Vector{X: t[3], Y: t[4], Z: t[5]}
}

// DofMask selects which cartesian degrees of freedom are constrained.
type DofMask [cartesianDofSize]bool

// AllDof constrains translation and rotation on every axis.
var AllDof = DofMask{true, true, true, true, true, true}

// ComputeTwist returns the error that takes the current tool pose onto the goal pose.
// Components whose dof is not constrained by mask are zero.
func ComputeTwist(current, goal spatialmath.Pose, mask DofMask) Twist {
	linear := goal.Point().Sub(current.Point())
	angular := rotationError(current.Orientation(), goal.Orientation())

	tw := Twist{linear.X, linear.Y, linear.Z, angular.X, angular.Y, angular.Z}
	for i := range tw {
		if !mask[i] {
			tw[i] = 0
		}
	}
	return tw
}

// rotationError is the world frame axis-angle vector of the rotation carrying from onto to.
func rotationError(from, to spatialmath.Orientation) r3.Vector {
	aa := spatialmath.OrientationBetween(from, to).AxisAngles()
	if aa.Theta == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: aa.RX, Y: aa.RY, Z: aa.RZ}.Mul(aa.Theta)
}
