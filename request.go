package stomp_costs

import (
	"encoding/json"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
	"go.viam.com/rdk/spatialmath"
)

// PlanRequest is the part of a motion plan request the cost function reads.
type PlanRequest struct {
	// StartState holds joint values by name. Joints not listed start at zero.
	StartState      map[string]float64
	GoalConstraints []Constraints
}

// Constraints is one goal alternative. It is either cartesian typed or joint typed.
type Constraints struct {
	Name      string
	Cartesian *CartesianConstraint
	Joints    []JointConstraint
}

// IsCartesian reports whether the alternative constrains the tool position or orientation.
func (c Constraints) IsCartesian() bool {
	return c.Cartesian != nil && (c.Cartesian.Position != nil || c.Cartesian.Orientation != nil)
}

// CartesianConstraint is a target tool pose with a per axis tolerance. A missing position or
// orientation is filled in from the tool pose at the start state.
type CartesianConstraint struct {
	Position    *r3.Vector
	Orientation spatialmath.Orientation
	Tolerance   ToleranceVector
}

// JointConstraint is a target value for a single named joint.
type JointConstraint struct {
	JointName string
	Position  float64
}

// resolve builds the goal pose, taking missing parts from start.
func (c *CartesianConstraint) resolve(start spatialmath.Pose) spatialmath.Pose {
	goal := &exactPose{point: start.Point(), orientation: start.Orientation()}
	if c.Position != nil {
		goal.point = *c.Position
	}
	if c.Orientation != nil {
		goal.orientation = c.Orientation
	}
	return goal
}

// exactPose returns the point and orientation it was built from unchanged. spatialmath.NewPose
// stores a dual quaternion, which does not read back bit for bit.
type exactPose struct {
	point       r3.Vector
	orientation spatialmath.Orientation
}

func (p *exactPose) Point() r3.Vector {
	return p.point
}

func (p *exactPose) Orientation() spatialmath.Orientation {
	return p.orientation
}

// PlanRequestConfig is the serialized form of a PlanRequest, used by DoCommand and request files.
type PlanRequestConfig struct {
	StartState      map[string]float64  `json:"start_state,omitempty"`
	GoalConstraints []ConstraintsConfig `json:"goal_constraints"`
}

// ConstraintsConfig is the serialized form of one goal alternative.
type ConstraintsConfig struct {
	Name string `json:"name,omitempty"`

	// Cartesian goal. Position is in mm, orientation is an orientation vector with theta in degrees.
	Position    *PositionConfig    `json:"position,omitempty"`
	Orientation *OrientationConfig `json:"orientation,omitempty"`
	// Tolerance is x, y, z in mm followed by rx, ry, rz in radians.
	Tolerance []float64 `json:"tolerance,omitempty"`

	Joints []JointConstraintConfig `json:"joints,omitempty"`
}

// PositionConfig is a cartesian point in mm.
type PositionConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// OrientationConfig is an orientation vector with theta in degrees.
type OrientationConfig struct {
	OX    float64 `json:"o_x"`
	OY    float64 `json:"o_y"`
	OZ    float64 `json:"o_z"`
	Theta float64 `json:"theta"`
}

// JointConstraintConfig is the serialized form of a JointConstraint.
type JointConstraintConfig struct {
	JointName string  `json:"joint_name"`
	Position  float64 `json:"position"`
}

// DecodePlanRequest decodes a request from a DoCommand style map.
func DecodePlanRequest(raw interface{}) (*PlanRequest, error) {
	var cfg PlanRequestConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode plan request")
	}
	return cfg.PlanRequest()
}

// ParsePlanRequestJSON decodes a request from JSON.
func ParsePlanRequestJSON(data []byte) (*PlanRequest, error) {
	var cfg PlanRequestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse plan request JSON")
	}
	return cfg.PlanRequest()
}

// PlanRequest converts the serialized request into its domain form.
func (cfg *PlanRequestConfig) PlanRequest() (*PlanRequest, error) {
	req := &PlanRequest{StartState: cfg.StartState}
	for i, g := range cfg.GoalConstraints {
		c, err := g.constraints()
		if err != nil {
			return nil, errors.Wrapf(err, "goal_constraints[%d]", i)
		}
		req.GoalConstraints = append(req.GoalConstraints, c)
	}
	return req, nil
}

func (g ConstraintsConfig) constraints() (Constraints, error) {
	c := Constraints{Name: g.Name}
	for _, j := range g.Joints {
		c.Joints = append(c.Joints, JointConstraint{JointName: j.JointName, Position: j.Position})
	}
	if g.Position == nil && g.Orientation == nil {
		return c, nil
	}

	tol, err := toleranceFromSlice(g.Tolerance)
	if err != nil {
		return Constraints{}, err
	}
	cc := &CartesianConstraint{Tolerance: tol}
	if g.Position != nil {
		cc.Position = &r3.Vector{X: g.Position.X, Y: g.Position.Y, Z: g.Position.Z}
	}
	if g.Orientation != nil {
		ov := &spatialmath.OrientationVectorDegrees{
			OX:    g.Orientation.OX,
			OY:    g.Orientation.OY,
			OZ:    g.Orientation.OZ,
			Theta: g.Orientation.Theta,
		}
		if ov.OX == 0 && ov.OY == 0 && ov.OZ == 0 {
			ov.OZ = 1
		}
		cc.Orientation = ov
	}
	c.Cartesian = cc
	return c, nil
}

// toleranceFromSlice accepts 6 per axis values, or 2 values replicated as position and rotation.
func toleranceFromSlice(vals []float64) (ToleranceVector, error) {
	var tol ToleranceVector
	switch len(vals) {
	case cartesianDofSize:
		copy(tol[:], vals)
	case 2:
		tol = UniformTolerance(vals[0], vals[1])
	default:
		return tol, errors.Wrapf(ErrInvalidGoalConstraint, "tolerance needs 6 or 2 values, got %d", len(vals))
	}
	return tol, tol.Validate()
}

// PoseConfig is the serialized form of a pose, in the same units as commonpb.Pose.
type PoseConfig struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	OX    float64 `json:"o_x"`
	OY    float64 `json:"o_y"`
	OZ    float64 `json:"o_z"`
	Theta float64 `json:"theta"`
}

// NewPoseConfig serializes a pose.
func NewPoseConfig(p spatialmath.Pose) PoseConfig {
	return PoseConfigFromProtobuf(spatialmath.PoseToProtobuf(p))
}

// PoseConfigFromProtobuf converts an api pose.
func PoseConfigFromProtobuf(pb *commonpb.Pose) PoseConfig {
	return PoseConfig{X: pb.X, Y: pb.Y, Z: pb.Z, OX: pb.OX, OY: pb.OY, OZ: pb.OZ, Theta: pb.Theta}
}

// Map returns the pose as a DoCommand friendly map.
func (p PoseConfig) Map() map[string]interface{} {
	return map[string]interface{}{
		"x": p.X, "y": p.Y, "z": p.Z,
		"o_x": p.OX, "o_y": p.OY, "o_z": p.OZ, "theta": p.Theta,
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
