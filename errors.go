package stomp_costs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMissingGoalConstraint is returned when a planning request carries no goal constraints at all.
	ErrMissingGoalConstraint = errors.New("a goal constraint was not provided")
	// ErrInvalidGoalConstraint is returned when no usable goal can be decoded from the request.
	ErrInvalidGoalConstraint = errors.New("invalid goal constraint")
	// ErrDegenerateTolerance marks bounds where max == min on some dof.
	ErrDegenerateTolerance = errors.New("degenerate tolerance bound")

	errNotConfigured = errors.New("cost function is not configured")
	errNoGoal        = errors.New("no goal has been set for the current planning request")
)

// ConfigurationError reports a missing or malformed configuration parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func newConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}
