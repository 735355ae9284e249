package stomp_costs

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/spatialmath"
)

func TestDecodePlanRequest(t *testing.T) {
	raw := map[string]interface{}{
		"start_state": map[string]interface{}{"x": 0.1},
		"goal_constraints": []interface{}{
			map[string]interface{}{
				"name":   "reach",
				"joints": []interface{}{map[string]interface{}{"joint_name": "y", "position": 0.2}},
			},
			map[string]interface{}{
				"position":    map[string]interface{}{"x": 1.0, "y": 2.0, "z": 3.0},
				"orientation": map[string]interface{}{"o_x": 0.0, "o_y": 0.0, "o_z": 1.0, "theta": 90.0},
				"tolerance":   []interface{}{0.5, 0.05},
			},
		},
	}

	req, err := DecodePlanRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 0.1}, req.StartState)
	require.Len(t, req.GoalConstraints, 2)

	first := req.GoalConstraints[0]
	assert.Equal(t, "reach", first.Name)
	assert.False(t, first.IsCartesian())
	assert.Equal(t, []JointConstraint{{JointName: "y", Position: 0.2}}, first.Joints)

	second := req.GoalConstraints[1]
	require.True(t, second.IsCartesian())
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, *second.Cartesian.Position)
	assert.Equal(t, UniformTolerance(0.5, 0.05), second.Cartesian.Tolerance)
	assert.True(t, spatialmath.OrientationAlmostEqual(
		&spatialmath.OrientationVectorDegrees{OZ: 1, Theta: 90},
		second.Cartesian.Orientation))
}

func TestDecodePlanRequestUnknownField(t *testing.T) {
	_, err := DecodePlanRequest(map[string]interface{}{
		"goal_constraints": []interface{}{},
		"goal":             "somewhere",
	})
	assert.Error(t, err)
}

func TestParsePlanRequestJSON(t *testing.T) {
	t.Run("position only", func(t *testing.T) {
		req, err := ParsePlanRequestJSON([]byte(`{
			"goal_constraints": [{"position": {"x": 1, "y": 0, "z": 0}, "tolerance": [1, 1, 1, 0.1, 0.1, 0.1]}]
		}`))
		require.NoError(t, err)
		c := req.GoalConstraints[0].Cartesian
		require.NotNil(t, c)
		assert.NotNil(t, c.Position)
		assert.Nil(t, c.Orientation)
		assert.Equal(t, ToleranceVector{1, 1, 1, 0.1, 0.1, 0.1}, c.Tolerance)
	})

	t.Run("bad tolerance length", func(t *testing.T) {
		_, err := ParsePlanRequestJSON([]byte(`{
			"goal_constraints": [{"position": {"x": 1, "y": 0, "z": 0}, "tolerance": [1, 1, 1]}]
		}`))
		assert.True(t, errors.Is(err, ErrInvalidGoalConstraint))
		assert.ErrorContains(t, err, "goal_constraints[0]")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParsePlanRequestJSON([]byte(`{"goal_constraints": [`))
		assert.Error(t, err)
	})
}

func TestPoseConfig(t *testing.T) {
	p := spatialmath.NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &spatialmath.OrientationVectorDegrees{OZ: 1, Theta: 45})
	cfg := NewPoseConfig(p)
	assert.InDelta(t, 1, cfg.X, 1e-9)
	assert.InDelta(t, 3, cfg.Z, 1e-9)
	assert.InDelta(t, 1, cfg.OZ, 1e-9)
	assert.InDelta(t, 45, cfg.Theta, 1e-9)

	assert.Equal(t, cfg, PoseConfigFromProtobuf(spatialmath.PoseToProtobuf(p)))

	m := cfg.Map()
	assert.Len(t, m, 7)
	assert.Equal(t, cfg.Theta, m["theta"])
}

func TestDecodedCartesianGoalIsExact(t *testing.T) {
	req, err := ParsePlanRequestJSON([]byte(`{
		"goal_constraints": [{
			"position": {"x": 1, "y": 2, "z": 3},
			"orientation": {"o_x": 0, "o_y": 1, "o_z": 0, "theta": 30},
			"tolerance": [0.5, 0.05]
		}]
	}`))
	require.NoError(t, err)

	goal, err := ExtractGoal(req, testKinematics(), DefaultGoalDefaults())
	require.NoError(t, err)
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, goal.TargetPose.Point())
	assert.Equal(t, &spatialmath.OrientationVectorDegrees{OY: 1, Theta: 30}, goal.TargetPose.Orientation())
	assert.Equal(t, Twist{}, ComputeTwist(goal.TargetPose, goal.TargetPose, AllDof))
}

func TestDecodeOrientationDefaultsToZAxis(t *testing.T) {
	req, err := ParsePlanRequestJSON([]byte(`{
		"goal_constraints": [{"orientation": {"theta": 45}, "tolerance": [1, 0.1]}]
	}`))
	require.NoError(t, err)
	c := req.GoalConstraints[0].Cartesian
	require.NotNil(t, c)
	assert.Nil(t, c.Position)
	assert.Equal(t, &spatialmath.OrientationVectorDegrees{OZ: 1, Theta: 45}, c.Orientation)
}
