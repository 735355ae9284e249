package stomp_costs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKinematics(t *testing.T) {
	kin, err := NewKinematics(linearArm{}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"joint_0", "joint_1", "joint_2"}, kin.JointNames())
	assert.Equal(t, "tool", kin.ToolLink())

	_, err = NewKinematics(linearArm{}, []string{"a", "b"}, "")
	assert.ErrorContains(t, err, "2 joint names")

	_, err = NewKinematics(linearArm{}, []string{"a", "b", "a"}, "")
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewKinematics(nil, nil, "")
	assert.Error(t, err)
}

func TestRobotState(t *testing.T) {
	kin := testKinematics()
	state := kin.NewState()
	assert.Equal(t, []float64{0, 0, 0}, state.Positions())

	require.NoError(t, state.SetVariablePositions(map[string]float64{"x": 0.1, "z": 0.3}))
	assert.Equal(t, []float64{0.1, 0, 0.3}, state.Positions())

	pose, err := state.ToolPose()
	require.NoError(t, err)
	assert.InDelta(t, 10, pose.Point().X, 1e-9)
	assert.InDelta(t, 30, pose.Point().Z, 1e-9)

	assert.Error(t, state.SetVariablePosition("q", 1))
	assert.Error(t, state.SetPositions([]float64{1, 2}))

	other := kin.NewState()
	assert.Equal(t, []float64{0, 0, 0}, other.Positions(), "states are independent")
}

func TestLoadKinematicsJSON(t *testing.T) {
	_, err := LoadKinematicsJSON([]byte(`{"name": "broken"`), "", "")
	assert.Error(t, err)
}
