package stomp_costs

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// linearArm moves the tool 100mm along x, y and z per unit of its three joints and rolls it
// about z by the third joint.
type linearArm struct{}

func (linearArm) Transform(j []referenceframe.Input) (spatialmath.Pose, error) {
	if len(j) != 3 {
		return nil, referenceframe.NewIncorrectDoFError(len(j), 3)
	}
	return spatialmath.NewPose(
		r3.Vector{X: j[0] * 100, Y: j[1] * 100, Z: j[2] * 100},
		&spatialmath.R4AA{Theta: j[2], RZ: 1},
	), nil
}

func (linearArm) DoF() []referenceframe.Limit {
	return []referenceframe.Limit{{Min: -10, Max: 10}, {Min: -10, Max: 10}, {Min: -10, Max: 10}}
}

func testKinematics() *Kinematics {
	kin, err := NewKinematics(linearArm{}, []string{"x", "y", "z"}, "")
	if err != nil {
		panic(err)
	}
	return kin
}

func weights(pos, orient float64) *Config {
	return &Config{PositionCostWeight: &pos, OrientationCostWeight: &orient}
}

func cartesianRequest(x, y, z float64, tol ToleranceVector) *PlanRequest {
	p := r3.Vector{X: x, Y: y, Z: z}
	return &PlanRequest{GoalConstraints: []Constraints{{
		Cartesian: &CartesianConstraint{
			Position:    &p,
			Orientation: spatialmath.NewZeroOrientation(),
			Tolerance:   tol,
		},
	}}}
}
