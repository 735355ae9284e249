package stomp_costs

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/mat"
)

// CostWeights scale the position and orientation error into the terminal cost.
type CostWeights struct {
	Position    float64
	Orientation float64
}

// Validate ensures both weights are finite and non-negative.
func (w CostWeights) Validate() error {
	if math.IsNaN(w.Position) || math.IsInf(w.Position, 0) || w.Position < 0 {
		return newConfigurationError("position_cost_weight", fmt.Sprintf("must be a finite value >= 0, got %v", w.Position))
	}
	if math.IsNaN(w.Orientation) || math.IsInf(w.Orientation, 0) || w.Orientation < 0 {
		return newConfigurationError("orientation_cost_weight", fmt.Sprintf("must be a finite value >= 0, got %v", w.Orientation))
	}
	return nil
}

// Total is the sum of both weights, the largest cost a single rollout can receive.
func (w CostWeights) Total() float64 {
	return w.Position + w.Orientation
}

// Cost combines the scaled position and orientation errors.
func (w CostWeights) Cost(s ScaledError) float64 {
	return s.Position*w.Position + s.Orientation*w.Orientation
}

// TerminalCosts returns a cost vector of numTimesteps entries where only the last one is non-zero.
func TerminalCosts(numTimesteps int, cost float64) []float64 {
	costs := make([]float64, numTimesteps)
	if numTimesteps > 0 {
		costs[numTimesteps-1] = cost
	}
	return costs
}

// WithinTolerance reports whether every twist component is inside the tolerance, boundary included.
func WithinTolerance(tw Twist, tol ToleranceVector) bool {
	for i, v := range tw {
		if math.Abs(v) > tol[i] {
			return false
		}
	}
	return true
}

// Evaluation is the outcome of scoring one trajectory against a goal.
type Evaluation struct {
	ToolPose spatialmath.Pose
	Twist    Twist
	Scaled   ScaledError
	Costs    []float64
	Valid    bool
}

// Cost returns the terminal cost of the evaluation.
func (e *Evaluation) Cost() float64 {
	if len(e.Costs) == 0 {
		return 0
	}
	return e.Costs[len(e.Costs)-1]
}

// Evaluate scores the last configuration of parameters against goal. parameters holds one
// joint per row and one timestep per column.
func Evaluate(goal *GoalSpec, kin *Kinematics, parameters mat.Matrix, weights CostWeights) (*Evaluation, error) {
	if goal == nil {
		return nil, errNoGoal
	}
	rows, cols := parameters.Dims()
	if cols == 0 {
		return nil, errors.New("trajectory has no timesteps")
	}
	if rows != kin.DoF() {
		return nil, errors.Errorf("trajectory has %d joints per timestep, kinematics expects %d", rows, kin.DoF())
	}

	state := kin.NewState()
	if err := state.SetPositions(mat.Col(nil, cols-1, parameters)); err != nil {
		return nil, err
	}
	toolPose, err := state.ToolPose()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute tool pose of the last timestep")
	}

	tw := ComputeTwist(toolPose, goal.TargetPose, AllDof)
	scaled := ScaleError(tw, goal.Bounds)
	return &Evaluation{
		ToolPose: toolPose,
		Twist:    tw,
		Scaled:   scaled,
		Costs:    TerminalCosts(cols, weights.Cost(scaled)),
		Valid:    WithinTolerance(tw, goal.Tolerance),
	}, nil
}
