package stomp_costs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
)

func newTestService(t *testing.T, conf *Config) resource.Resource {
	t.Helper()
	_, _, err := conf.Validate("services.0")
	require.NoError(t, err)
	svc, err := NewService(context.Background(), generic.Named("cost"), conf, logging.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close(context.Background())) })
	return svc
}

func demoGoalRequest() map[string]interface{} {
	return map[string]interface{}{
		"goal_constraints": []interface{}{
			map[string]interface{}{
				"joints": []interface{}{map[string]interface{}{"joint_name": "elbow", "position": 0.3}},
			},
		},
	}
}

func TestServiceDoCommand(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, weights(1, 1))

	_, err := svc.DoCommand(ctx, map[string]interface{}{"command": "goal"})
	assert.Equal(t, errNoGoal, err)

	res, err := svc.DoCommand(ctx, map[string]interface{}{"command": "set_goal", "request": demoGoalRequest()})
	require.NoError(t, err)
	assert.Equal(t, string(GoalFromJoints), res["source"])
	goalID := res["goal_id"]
	assert.NotEmpty(t, goalID)
	assert.Len(t, res["tolerance"], 6)

	res, err = svc.DoCommand(ctx, map[string]interface{}{"command": "goal"})
	require.NoError(t, err)
	assert.Equal(t, goalID, res["goal_id"])

	res, err = svc.DoCommand(ctx, map[string]interface{}{
		"command": "compute_costs",
		"trajectory": []interface{}{
			[]interface{}{0.0, 0.0, 0.0, 0.0, 0.0},
			[]interface{}{0.0, 0.0, 0.3, 0.0, 0.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, true, res["valid"])
	assert.Equal(t, []interface{}{0.0, 0.0}, res["costs"])

	res, err = svc.DoCommand(ctx, map[string]interface{}{
		"command": "evaluate_rollouts",
		"rollouts": []interface{}{
			[]interface{}{[]interface{}{0.0, 0.0, 0.0, 0.0, 0.0}},
			[]interface{}{[]interface{}{0.0, 0.0, 0.3, 0.0, 0.0}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res["iteration"])
	assert.Equal(t, 1, res["best"])
	assert.Equal(t, []interface{}{false, true}, res["valid"])
	costs := res["costs"].([]interface{})
	assert.InDelta(t, 2.0, costs[0].(float64), 1e-9)

	res, err = svc.DoCommand(ctx, map[string]interface{}{"command": "evaluate_rollouts", "rollouts": []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, 1, res["iteration"])

	res, err = svc.DoCommand(ctx, map[string]interface{}{"command": "evaluations"})
	require.NoError(t, err)
	assert.Equal(t, goalID, res["goal_id"])
	assert.Len(t, res["evaluations"], 3)
}

func TestServiceDoCommandErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, weights(1, 1))

	_, err := svc.DoCommand(ctx, map[string]interface{}{"command": "dance"})
	assert.ErrorContains(t, err, "unknown command")

	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": "set_goal"})
	assert.ErrorContains(t, err, "request")

	_, err = svc.DoCommand(ctx, map[string]interface{}{
		"command": "set_goal",
		"request": map[string]interface{}{"goal_constraints": []interface{}{}},
	})
	assert.Equal(t, ErrMissingGoalConstraint, err)

	_, err = svc.DoCommand(ctx, map[string]interface{}{
		"command":    "compute_costs",
		"trajectory": []interface{}{[]interface{}{0.0, 0.0, 0.0, 0.0, 0.0}},
	})
	assert.Equal(t, errNoGoal, err)

	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": "evaluate_rollouts"})
	assert.ErrorContains(t, err, "rollouts")

	_, err = svc.DoCommand(ctx, map[string]interface{}{"command": "compute_costs", "trajectory": "nope"})
	assert.Error(t, err)
}

func TestServiceSQLiteTrace(t *testing.T) {
	ctx := context.Background()
	conf := weights(1, 1)
	conf.TraceStore = "sqlite"
	conf.TracePath = filepath.Join(t.TempDir(), "trace.db")
	svc := newTestService(t, conf)

	_, err := svc.DoCommand(ctx, map[string]interface{}{"command": "set_goal", "request": demoGoalRequest()})
	require.NoError(t, err)
	_, err = svc.DoCommand(ctx, map[string]interface{}{
		"command":    "compute_costs",
		"trajectory": []interface{}{[]interface{}{0.0, 0.0, 0.3, 0.0, 0.0}},
		"iteration":  4,
		"rollout":    2,
	})
	require.NoError(t, err)

	res, err := svc.DoCommand(ctx, map[string]interface{}{"command": "evaluations"})
	require.NoError(t, err)
	evals := res["evaluations"].([]interface{})
	require.Len(t, evals, 1)
	e := evals[0].(map[string]interface{})
	assert.Equal(t, 4, e["iteration"])
	assert.Equal(t, 2, e["rollout"])
	assert.Equal(t, true, e["valid"])
}

func TestNewServiceRejectsArm(t *testing.T) {
	conf := weights(1, 1)
	conf.Arm = "so101"
	_, err := NewService(context.Background(), generic.Named("cost"), conf, logging.NewTestLogger(t))
	assert.ErrorContains(t, err, "so101")
}

func TestTrajectoryFromWaypoints(t *testing.T) {
	params, err := TrajectoryFromWaypoints([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	rows, cols := params.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 5.0, params.At(0, 2))
	assert.Equal(t, 6.0, params.At(1, 2))

	_, err = TrajectoryFromWaypoints(nil)
	assert.Error(t, err)
	_, err = TrajectoryFromWaypoints([][]float64{{}})
	assert.Error(t, err)
	_, err = TrajectoryFromWaypoints([][]float64{{1, 2}, {3}})
	assert.ErrorContains(t, err, "waypoint 1")
}
