package stomp_costs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
)

const defaultMaxParallelRollouts = 8

// Config configures a tool goal pose cost function.
type Config struct {
	// Kinematics source: an arm dependency, a kinematics JSON file, or the embedded demo arm.
	Arm            string   `json:"arm,omitempty"`
	KinematicsFile string   `json:"kinematics_file,omitempty"`
	JointNames     []string `json:"joint_names,omitempty"`
	ToolLink       string   `json:"tool_link,omitempty"`

	// Required
	PositionCostWeight    *float64 `json:"position_cost_weight"`
	OrientationCostWeight *float64 `json:"orientation_cost_weight"`

	// Tolerance used when the goal is given as joint targets: mm on x, y, z and radians on
	// rx, ry, rz. Unset values fall back to DefaultPositionTolerance and DefaultRotationTolerance.
	DefaultPositionTolerance float64 `json:"default_position_tolerance,omitempty"`
	DefaultRotationTolerance float64 `json:"default_rotation_tolerance,omitempty"`

	MaxParallelRollouts int `json:"max_parallel_rollouts,omitempty"`

	// Evaluation traces: "", "memory" or "sqlite"
	TraceStore string `json:"trace_store,omitempty"`
	TracePath  string `json:"trace_path,omitempty"`
}

// Validate ensures all parts of the config are valid and fills in defaults.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	var errs error
	if cfg.PositionCostWeight == nil {
		errs = multierr.Append(errs, newConfigurationError("position_cost_weight", "is required"))
	}
	if cfg.OrientationCostWeight == nil {
		errs = multierr.Append(errs, newConfigurationError("orientation_cost_weight", "is required"))
	}
	if cfg.PositionCostWeight != nil && cfg.OrientationCostWeight != nil {
		errs = multierr.Append(errs, cfg.Weights().Validate())
	}
	if cfg.Arm != "" && cfg.KinematicsFile != "" {
		errs = multierr.Append(errs, newConfigurationError("kinematics_file", "cannot be combined with arm"))
	}

	if cfg.DefaultPositionTolerance == 0 {
		cfg.DefaultPositionTolerance = DefaultPositionTolerance
	}
	if cfg.DefaultRotationTolerance == 0 {
		cfg.DefaultRotationTolerance = DefaultRotationTolerance
	}
	if cfg.DefaultPositionTolerance < 0 || cfg.DefaultRotationTolerance < 0 {
		errs = multierr.Append(errs, newConfigurationError("default tolerances", "must be >= 0"))
	}
	if cfg.MaxParallelRollouts == 0 {
		cfg.MaxParallelRollouts = defaultMaxParallelRollouts
	}
	if cfg.MaxParallelRollouts < 0 {
		errs = multierr.Append(errs, newConfigurationError("max_parallel_rollouts", fmt.Sprintf("must be > 0, got %d", cfg.MaxParallelRollouts)))
	}

	switch cfg.TraceStore {
	case "", "memory":
	case "sqlite":
		if cfg.TracePath == "" {
			errs = multierr.Append(errs, newConfigurationError("trace_path", "is required for the sqlite trace store"))
		}
	default:
		errs = multierr.Append(errs, newConfigurationError("trace_store", fmt.Sprintf("must be memory or sqlite, got %q", cfg.TraceStore)))
	}

	if errs != nil {
		return nil, nil, errs
	}
	if cfg.Arm != "" {
		return []string{cfg.Arm}, nil, nil
	}
	return nil, nil, nil
}

// Weights returns the configured cost weights. Validate must have succeeded first.
func (cfg *Config) Weights() CostWeights {
	var w CostWeights
	if cfg.PositionCostWeight != nil {
		w.Position = *cfg.PositionCostWeight
	}
	if cfg.OrientationCostWeight != nil {
		w.Orientation = *cfg.OrientationCostWeight
	}
	return w
}

// GoalDefaults returns the tolerance assigned to joint target goals.
func (cfg *Config) GoalDefaults() GoalDefaults {
	d := DefaultGoalDefaults()
	if cfg.DefaultPositionTolerance > 0 {
		d.PositionTolerance = cfg.DefaultPositionTolerance
	}
	if cfg.DefaultRotationTolerance > 0 {
		d.RotationTolerance = cfg.DefaultRotationTolerance
	}
	return d
}

// WeightsFromAttributes reads the two required weights from a raw attribute map.
// Strings and booleans are rejected even when they would convert to a number.
func WeightsFromAttributes(attrs map[string]interface{}) (CostWeights, error) {
	pos, err := numericAttribute(attrs, "position_cost_weight")
	if err != nil {
		return CostWeights{}, err
	}
	orient, err := numericAttribute(attrs, "orientation_cost_weight")
	if err != nil {
		return CostWeights{}, err
	}
	w := CostWeights{Position: pos, Orientation: orient}
	return w, w.Validate()
}

func numericAttribute(attrs map[string]interface{}, key string) (float64, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return 0, newConfigurationError(key, "is required")
	}
	switch raw.(type) {
	case string, bool:
		return 0, newConfigurationError(key, fmt.Sprintf("must be numeric, got %T", raw))
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, newConfigurationError(key, fmt.Sprintf("must be numeric: %v", err))
	}
	return v, nil
}

// LoadConfigFile reads and validates a JSON config.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if _, _, err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadKinematics builds the kinematics named by the config, falling back to the demo arm.
// Arm based kinematics are resolved by the service, which has access to dependencies.
func (cfg *Config) LoadKinematics(logger logging.Logger) (*Kinematics, error) {
	if cfg.KinematicsFile == "" {
		if logger != nil {
			logger.Debug("No kinematics file specified, using the embedded demo arm")
		}
		return DemoKinematics()
	}
	path := resolveModuleDataPath(cfg.KinematicsFile)
	kin, err := LoadKinematicsFile(path, cfg.ToolLink)
	if err != nil {
		return nil, err
	}
	if len(cfg.JointNames) > 0 {
		return NewKinematics(kin.fk, cfg.JointNames, kin.toolLink)
	}
	if logger != nil {
		logger.Infof("Loaded kinematics from %s with joints %v", path, kin.jointNames)
	}
	return kin, nil
}

// resolveModuleDataPath resolves relative paths against VIAM_MODULE_DATA.
func resolveModuleDataPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
	if moduleDataDir == "" {
		moduleDataDir = "/tmp" // Fallback if VIAM_MODULE_DATA not set
	}
	return filepath.Join(moduleDataDir, p)
}
