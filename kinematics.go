package stomp_costs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

//go:embed demo_arm.json
var demoArmJSON []byte

// ForwardKinematics maps a joint configuration to the pose of the tool link.
// referenceframe.Model satisfies it.
type ForwardKinematics interface {
	Transform([]referenceframe.Input) (spatialmath.Pose, error)
	DoF() []referenceframe.Limit
}

// Kinematics binds a forward kinematics solver to the joint names of its planning group.
type Kinematics struct {
	fk         ForwardKinematics
	jointNames []string
	jointIndex map[string]int
	toolLink   string
}

// NewKinematics wraps fk. When jointNames is empty the joints are named joint_0..joint_n.
func NewKinematics(fk ForwardKinematics, jointNames []string, toolLink string) (*Kinematics, error) {
	if fk == nil {
		return nil, errors.New("forward kinematics must not be nil")
	}
	dof := len(fk.DoF())
	if len(jointNames) == 0 {
		jointNames = make([]string, dof)
		for i := range jointNames {
			jointNames[i] = fmt.Sprintf("joint_%d", i)
		}
	}
	if len(jointNames) != dof {
		return nil, errors.Errorf("got %d joint names for a model with %d degrees of freedom", len(jointNames), dof)
	}

	index := make(map[string]int, dof)
	for i, name := range jointNames {
		if _, dup := index[name]; dup {
			return nil, errors.Errorf("duplicate joint name %q", name)
		}
		index[name] = i
	}
	if toolLink == "" {
		toolLink = "tool"
	}
	return &Kinematics{fk: fk, jointNames: jointNames, jointIndex: index, toolLink: toolLink}, nil
}

// LoadKinematicsJSON parses a kinematics JSON model. Joint names are taken from the model's
// joints in file order, which matches the model's dof order for serial chains.
func LoadKinematicsJSON(data []byte, modelName, toolLink string) (*Kinematics, error) {
	model, err := referenceframe.UnmarshalModelJSON(data, modelName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse kinematics model")
	}

	var joints struct {
		Joints []struct {
			ID string `json:"id"`
		} `json:"joints"`
	}
	if err := json.Unmarshal(data, &joints); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	names := make([]string, 0, len(joints.Joints))
	for _, j := range joints.Joints {
		names = append(names, j.ID)
	}
	return NewKinematics(model, names, toolLink)
}

// LoadKinematicsFile reads a kinematics JSON model from disk.
func LoadKinematicsFile(path, toolLink string) (*Kinematics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kinematics file: %w", err)
	}
	return LoadKinematicsJSON(data, "", toolLink)
}

// DemoKinematics returns the embedded five joint demo arm.
func DemoKinematics() (*Kinematics, error) {
	return LoadKinematicsJSON(demoArmJSON, "demo_arm", "tool")
}

// DoF is the number of joints in the planning group.
func (k *Kinematics) DoF() int {
	return len(k.jointNames)
}

// JointNames returns the joint names in dof order.
func (k *Kinematics) JointNames() []string {
	return append([]string(nil), k.jointNames...)
}

// ToolLink is the name of the link whose pose is evaluated.
func (k *Kinematics) ToolLink() string {
	return k.toolLink
}

// NewState returns a scratch state with every joint at zero. States must not be shared
// between goroutines.
func (k *Kinematics) NewState() *RobotState {
	return &RobotState{kin: k, positions: make([]float64, k.DoF())}
}

// RobotState is a mutable joint configuration used for forward kinematics.
type RobotState struct {
	kin       *Kinematics
	positions []float64
}

// SetVariablePosition sets a single joint by name.
func (s *RobotState) SetVariablePosition(name string, value float64) error {
	i, ok := s.kin.jointIndex[name]
	if !ok {
		return errors.Errorf("unknown joint %q", name)
	}
	s.positions[i] = value
	return nil
}

// SetVariablePositions sets every named joint in values.
func (s *RobotState) SetVariablePositions(values map[string]float64) error {
	for name, v := range values {
		if err := s.SetVariablePosition(name, v); err != nil {
			return err
		}
	}
	return nil
}

// SetPositions replaces the whole configuration, in dof order.
func (s *RobotState) SetPositions(positions []float64) error {
	if len(positions) != len(s.positions) {
		return referenceframe.NewIncorrectDoFError(len(positions), len(s.positions))
	}
	copy(s.positions, positions)
	return nil
}

// Positions returns a copy of the configuration.
func (s *RobotState) Positions() []float64 {
	return append([]float64(nil), s.positions...)
}

// ToolPose runs forward kinematics on the current configuration.
func (s *RobotState) ToolPose() (spatialmath.Pose, error) {
	return s.kin.fk.Transform(s.positions)
}
