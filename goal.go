package stomp_costs

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
)

// GoalSource records how a goal was obtained.
type GoalSource string

const (
	// GoalFromCartesian means the goal was decoded from a cartesian constraint.
	GoalFromCartesian GoalSource = "cartesian"
	// GoalFromJoints means the goal was computed from joint targets by forward kinematics.
	GoalFromJoints GoalSource = "joints"
)

// GoalSpec is the target of one planning request. It is never modified after creation.
type GoalSpec struct {
	ID         uuid.UUID
	Source     GoalSource
	TargetPose spatialmath.Pose
	Tolerance  ToleranceVector
	Bounds     ToleranceBounds
}

// NewGoalSpec builds a goal and its tolerance bounds.
func NewGoalSpec(target spatialmath.Pose, tol ToleranceVector, source GoalSource) (*GoalSpec, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	return &GoalSpec{
		ID:         uuid.New(),
		Source:     source,
		TargetPose: target,
		Tolerance:  tol,
		Bounds:     NewToleranceBounds(tol),
	}, nil
}

// GoalDefaults is the tolerance assigned to goals derived from joint targets.
type GoalDefaults struct {
	PositionTolerance float64
	RotationTolerance float64
}

// DefaultGoalDefaults returns 0.001 on every position axis and 0.01 on every rotation axis.
func DefaultGoalDefaults() GoalDefaults {
	return GoalDefaults{PositionTolerance: DefaultPositionTolerance, RotationTolerance: DefaultRotationTolerance}
}

// ExtractGoal picks the goal of req. The first cartesian alternative wins. Otherwise the
// first alternative's joint targets are applied on top of the start state and the tool pose
// is computed by forward kinematics.
func ExtractGoal(req *PlanRequest, kin *Kinematics, defaults GoalDefaults) (*GoalSpec, error) {
	if req == nil || len(req.GoalConstraints) == 0 {
		return nil, ErrMissingGoalConstraint
	}

	state := kin.NewState()
	if err := state.SetVariablePositions(req.StartState); err != nil {
		return nil, errors.Wrap(err, "invalid start state")
	}

	for _, g := range req.GoalConstraints {
		if !g.IsCartesian() {
			continue
		}
		start, err := state.ToolPose()
		if err != nil {
			return nil, errors.Wrap(err, "failed to compute start tool pose")
		}
		return NewGoalSpec(g.Cartesian.resolve(start), g.Cartesian.Tolerance, GoalFromCartesian)
	}

	joints := req.GoalConstraints[0].Joints
	if len(joints) == 0 {
		return nil, errors.Wrap(ErrInvalidGoalConstraint, "no joint values for the goal were found")
	}
	for _, jc := range joints {
		if !finite(jc.Position) {
			return nil, errors.Wrapf(ErrInvalidGoalConstraint, "joint %q has non-finite target %v", jc.JointName, jc.Position)
		}
		if err := state.SetVariablePosition(jc.JointName, jc.Position); err != nil {
			return nil, errors.Wrap(ErrInvalidGoalConstraint, err.Error())
		}
	}
	target, err := state.ToolPose()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute goal tool pose")
	}
	return NewGoalSpec(target, UniformTolerance(defaults.PositionTolerance, defaults.RotationTolerance), GoalFromJoints)
}
