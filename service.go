package stomp_costs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
	"gonum.org/v1/gonum/mat"

	"stomp_costs/trace"
)

// ToolGoalPoseModel serves a tool goal pose cost function through DoCommand.
var ToolGoalPoseModel = resource.NewModel("devrel", "stomp", "tool-goal-pose")

var sharedCostFunctions = NewCostFunctionRegistry()

func init() {
	resource.RegisterService(generic.API, ToolGoalPoseModel,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newToolGoalPoseService,
		},
	)
}

type toolGoalPoseService struct {
	resource.Named
	resource.AlwaysRebuild

	logger      logging.Logger
	group       string
	cost        CostFunction
	traces      trace.Store
	maxParallel int

	mu        sync.Mutex
	iteration int
}

func newToolGoalPoseService(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	kin, group, err := kinematicsFromDependencies(ctx, deps, conf, logger)
	if err != nil {
		return nil, err
	}
	return newService(ctx, rawConf.ResourceName(), group, conf, kin, logger)
}

// NewService builds the service without dependencies, so the kinematics must come from a
// kinematics file or the embedded demo arm.
func NewService(ctx context.Context, name resource.Name, conf *Config, logger logging.Logger) (resource.Resource, error) {
	if conf.Arm != "" {
		return nil, errors.Errorf("arm %q can only be resolved when running as a module", conf.Arm)
	}
	kin, group, err := kinematicsFromDependencies(ctx, nil, conf, logger)
	if err != nil {
		return nil, err
	}
	return newService(ctx, name, group, conf, kin, logger)
}

func kinematicsFromDependencies(ctx context.Context, deps resource.Dependencies, conf *Config, logger logging.Logger) (*Kinematics, string, error) {
	if conf.Arm == "" {
		kin, err := conf.LoadKinematics(logger)
		if err != nil {
			return nil, "", err
		}
		group := conf.KinematicsFile
		if group == "" {
			group = "demo_arm"
		}
		return kin, group, nil
	}

	a, err := arm.FromDependencies(deps, conf.Arm)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to get arm %s", conf.Arm)
	}
	model, err := a.Kinematics(ctx)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to get kinematics of arm %s", conf.Arm)
	}
	kin, err := NewKinematics(model, conf.JointNames, conf.ToolLink)
	if err != nil {
		return nil, "", err
	}
	return kin, conf.Arm, nil
}

func newService(ctx context.Context, name resource.Name, group string, conf *Config, kin *Kinematics, logger logging.Logger) (*toolGoalPoseService, error) {
	cost, err := sharedCostFunctions.GetCostFunction(group, ToolGoalPoseName, kin, conf, logger)
	if err != nil {
		return nil, err
	}

	store, err := trace.NewStore(conf.TraceStore, resolveModuleDataPath(conf.TracePath))
	if err != nil {
		sharedCostFunctions.ReleaseCostFunction(group)
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		sharedCostFunctions.ReleaseCostFunction(group)
		return nil, fmt.Errorf("failed to initialize trace store: %w", err)
	}

	return &toolGoalPoseService{
		Named:       name.AsNamed(),
		logger:      logger,
		group:       group,
		cost:        cost,
		traces:      store,
		maxParallel: conf.MaxParallelRollouts,
	}, nil
}

func (s *toolGoalPoseService) Close(context.Context) error {
	s.logger.Infof("Closing tool goal pose service for group %s", s.group)
	sharedCostFunctions.ReleaseCostFunction(s.group)
	return trace.CloseIfSupported(s.traces)
}

func (s *toolGoalPoseService) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "set_goal":
		raw, ok := cmd["request"]
		if !ok {
			return nil, fmt.Errorf("set_goal command requires 'request' parameter")
		}
		req, err := DecodePlanRequest(raw)
		if err != nil {
			return nil, err
		}
		goal, err := s.cost.SetMotionPlanRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.iteration = 0
		s.mu.Unlock()
		if err := s.traces.SaveGoal(ctx, goalRecord(goal)); err != nil {
			s.logger.Warnf("failed to record goal %s: %v", goal.ID, err)
		}
		return goalResult(goal), nil

	case "goal":
		goal := currentGoal(s.cost)
		if goal == nil {
			return nil, errNoGoal
		}
		return goalResult(goal), nil

	case "compute_costs":
		params, err := decodeTrajectory(cmd["trajectory"])
		if err != nil {
			return nil, err
		}
		iteration := cast.ToInt(cmd["iteration"])
		rollout := cast.ToInt(cmd["rollout"])
		result, err := evaluateRollout(s.cost, params, iteration, rollout)
		if err != nil {
			return nil, err
		}
		s.record(ctx, iteration, []RolloutResult{result})
		out := make([]interface{}, len(result.Costs))
		for i, c := range result.Costs {
			out[i] = c
		}
		return map[string]interface{}{
			"costs":             out,
			"valid":             result.Valid,
			"position_error":    result.PositionError,
			"orientation_error": result.OrientationError,
		}, nil

	case "evaluate_rollouts":
		rawRollouts, ok := cmd["rollouts"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("evaluate_rollouts command requires 'rollouts' list parameter")
		}
		rollouts := make([]mat.Matrix, len(rawRollouts))
		for i, raw := range rawRollouts {
			params, err := decodeTrajectory(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "rollout %d", i)
			}
			rollouts[i] = params
		}

		s.mu.Lock()
		iteration := s.iteration
		s.iteration++
		s.mu.Unlock()

		results, err := EvaluateRollouts(ctx, s.cost, iteration, rollouts, s.maxParallel)
		if err != nil {
			return nil, err
		}
		s.record(ctx, iteration, results)

		costs := make([]interface{}, len(results))
		valid := make([]interface{}, len(results))
		for i, r := range results {
			costs[i] = r.Cost()
			valid[i] = r.Valid
		}
		return map[string]interface{}{
			"iteration": iteration,
			"costs":     costs,
			"valid":     valid,
			"best":      BestRollout(results),
		}, nil

	case "evaluations":
		goal := currentGoal(s.cost)
		if goal == nil {
			return nil, errNoGoal
		}
		evals, err := s.traces.Evaluations(ctx, goal.ID.String())
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(evals))
		for i, e := range evals {
			out[i] = map[string]interface{}{
				"iteration":         e.Iteration,
				"rollout":           e.Rollout,
				"cost":              e.Cost,
				"position_error":    e.PositionError,
				"orientation_error": e.OrientationError,
				"valid":             e.Valid,
			}
		}
		return map[string]interface{}{"goal_id": goal.ID.String(), "evaluations": out}, nil

	default:
		return nil, fmt.Errorf("unknown command %v", cmd["command"])
	}
}

// record stores results against the current goal. Trace failures never fail an evaluation.
func (s *toolGoalPoseService) record(ctx context.Context, iteration int, results []RolloutResult) {
	goal := currentGoal(s.cost)
	if goal == nil {
		return
	}
	records := make([]trace.EvaluationRecord, len(results))
	for i, r := range results {
		records[i] = trace.EvaluationRecord{
			GoalID:           goal.ID.String(),
			Iteration:        iteration,
			Rollout:          r.Rollout,
			Cost:             r.Cost(),
			PositionError:    r.PositionError,
			OrientationError: r.OrientationError,
			Valid:            r.Valid,
		}
	}
	if err := s.traces.AppendEvaluations(ctx, records); err != nil {
		s.logger.Warnf("failed to record %d evaluations: %v", len(records), err)
	}
}

func currentGoal(cf CostFunction) *GoalSpec {
	if g, ok := cf.(interface{ Goal() *GoalSpec }); ok {
		return g.Goal()
	}
	return nil
}

func goalRecord(goal *GoalSpec) trace.GoalRecord {
	p := NewPoseConfig(goal.TargetPose)
	return trace.GoalRecord{
		ID:        goal.ID.String(),
		Source:    string(goal.Source),
		Pose:      [7]float64{p.X, p.Y, p.Z, p.OX, p.OY, p.OZ, p.Theta},
		Tolerance: goal.Tolerance,
		CreatedAt: time.Now(),
	}
}

func goalResult(goal *GoalSpec) map[string]interface{} {
	tol := make([]interface{}, len(goal.Tolerance))
	for i, v := range goal.Tolerance {
		tol[i] = v
	}
	maxTol := make([]interface{}, len(goal.Bounds.Max))
	for i, v := range goal.Bounds.Max {
		maxTol[i] = v
	}
	return map[string]interface{}{
		"goal_id":       goal.ID.String(),
		"source":        string(goal.Source),
		"pose":          NewPoseConfig(goal.TargetPose).Map(),
		"tolerance":     tol,
		"max_tolerance": maxTol,
	}
}

// decodeTrajectory reads a list of waypoints, each a list of joint values, into a matrix with
// one joint per row and one timestep per column.
func decodeTrajectory(raw interface{}) (*mat.Dense, error) {
	var waypoints [][]float64
	if err := mapstructure.Decode(raw, &waypoints); err != nil {
		return nil, errors.Wrap(err, "trajectory must be a list of joint value lists")
	}
	return TrajectoryFromWaypoints(waypoints)
}

// TrajectoryFromWaypoints builds a parameter matrix from waypoints in time order.
func TrajectoryFromWaypoints(waypoints [][]float64) (*mat.Dense, error) {
	if len(waypoints) == 0 {
		return nil, errors.New("trajectory has no timesteps")
	}
	joints := len(waypoints[0])
	if joints == 0 {
		return nil, errors.New("trajectory waypoints have no joint values")
	}
	params := mat.NewDense(joints, len(waypoints), nil)
	for t, wp := range waypoints {
		if len(wp) != joints {
			return nil, errors.Errorf("waypoint %d has %d joint values, expected %d", t, len(wp), joints)
		}
		params.SetCol(t, wp)
	}
	return params, nil
}
