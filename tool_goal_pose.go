package stomp_costs

import (
	"context"
	"sync"
	"sync/atomic"

	"go.viam.com/rdk/logging"
	"gonum.org/v1/gonum/mat"
)

// ToolGoalPoseName is the registry name of the tool goal pose cost function.
const ToolGoalPoseName = "tool_goal_pose"

// CostFunction scores rollouts for a trajectory optimizer.
type CostFunction interface {
	Name() string
	// Configure loads weights and defaults. It may be called again to reconfigure.
	Configure(cfg *Config) error
	// SetMotionPlanRequest fixes the goal for all following ComputeCosts calls.
	SetMotionPlanRequest(ctx context.Context, req *PlanRequest) (*GoalSpec, error)
	// ComputeCosts returns one cost per timestep of parameters and whether the rollout
	// satisfies the goal. It is safe to call concurrently.
	ComputeCosts(parameters mat.Matrix, iteration, rollout int) ([]float64, bool, error)
}

type toolGoalPoseConfig struct {
	weights  CostWeights
	defaults GoalDefaults
}

// ToolGoalPose penalizes the distance between the tool pose at the last timestep and the goal pose.
type ToolGoalPose struct {
	logger logging.Logger
	kin    *Kinematics

	goalMu sync.Mutex // serializes goal writers
	config atomic.Pointer[toolGoalPoseConfig]
	goal   atomic.Pointer[GoalSpec]
}

// NewToolGoalPose returns an unconfigured cost function for kin.
func NewToolGoalPose(kin *Kinematics, logger logging.Logger) *ToolGoalPose {
	return &ToolGoalPose{kin: kin, logger: logger}
}

// Name returns the registry name.
func (t *ToolGoalPose) Name() string {
	return ToolGoalPoseName
}

// Kinematics returns the kinematics the cost function evaluates.
func (t *ToolGoalPose) Kinematics() *Kinematics {
	return t.kin
}

// Configure validates cfg and loads the weights.
func (t *ToolGoalPose) Configure(cfg *Config) error {
	if _, _, err := cfg.Validate(""); err != nil {
		t.logger.Errorf("%s failed to load parameters, %v", t.Name(), err)
		return err
	}
	c := &toolGoalPoseConfig{weights: cfg.Weights(), defaults: cfg.GoalDefaults()}
	t.config.Store(c)
	t.logger.Infof("%s configured with position weight %v, orientation weight %v", t.Name(), c.weights.Position, c.weights.Orientation)
	return nil
}

// Weights returns the configured weights.
func (t *ToolGoalPose) Weights() (CostWeights, error) {
	c := t.config.Load()
	if c == nil {
		return CostWeights{}, errNotConfigured
	}
	return c.weights, nil
}

// SetMotionPlanRequest extracts the goal of req and publishes it for evaluation. On failure the
// previous goal is cleared so no rollout is scored against a stale target.
func (t *ToolGoalPose) SetMotionPlanRequest(ctx context.Context, req *PlanRequest) (*GoalSpec, error) {
	c := t.config.Load()
	if c == nil {
		return nil, errNotConfigured
	}

	t.goalMu.Lock()
	defer t.goalMu.Unlock()

	if req != nil && len(req.GoalConstraints) > 0 && !hasCartesian(req) {
		t.logger.CWarnf(ctx, "%s a cartesian goal pose in the request was not provided, calculating it from FK", t.Name())
	}
	goal, err := ExtractGoal(req, t.kin, c.defaults)
	if err != nil {
		t.goal.Store(nil)
		t.logger.CErrorf(ctx, "%s failed to extract goal: %v", t.Name(), err)
		return nil, err
	}
	if err := goal.Bounds.Validate(); err != nil {
		t.logger.CWarnf(ctx, "%s: %v, deviations on that dof saturate immediately", t.Name(), err)
	}
	t.goal.Store(goal)
	t.logger.CInfof(ctx, "%s goal %s set from %s constraint, tolerance %v", t.Name(), goal.ID, goal.Source, goal.Tolerance)
	return goal, nil
}

// Goal returns the current goal, or nil when none is set.
func (t *ToolGoalPose) Goal() *GoalSpec {
	return t.goal.Load()
}

// ComputeCosts scores the last column of parameters against the current goal.
func (t *ToolGoalPose) ComputeCosts(parameters mat.Matrix, iteration, rollout int) ([]float64, bool, error) {
	eval, err := t.Evaluate(parameters)
	if err != nil {
		return nil, false, err
	}
	t.logger.Debugw("rollout evaluated",
		"iteration", iteration,
		"rollout", rollout,
		"cost", eval.Cost(),
		"valid", eval.Valid)
	return eval.Costs, eval.Valid, nil
}

// Evaluate is ComputeCosts with the intermediate errors exposed.
func (t *ToolGoalPose) Evaluate(parameters mat.Matrix) (*Evaluation, error) {
	c := t.config.Load()
	if c == nil {
		return nil, errNotConfigured
	}
	return Evaluate(t.goal.Load(), t.kin, parameters, c.weights)
}

func hasCartesian(req *PlanRequest) bool {
	for _, g := range req.GoalConstraints {
		if g.IsCartesian() {
			return true
		}
	}
	return false
}

func init() {
	Register(ToolGoalPoseName, func(kin *Kinematics, logger logging.Logger) CostFunction {
		return NewToolGoalPose(kin, logger)
	})
}
