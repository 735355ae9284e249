// Package trace records goals and rollout evaluations so cost function tuning runs can be
// inspected after the fact.
package trace

import (
	"context"
	"time"
)

// GoalRecord is a goal as set for one planning request.
type GoalRecord struct {
	ID        string
	Source    string
	Pose      [7]float64 // x, y, z, o_x, o_y, o_z, theta
	Tolerance [6]float64
	CreatedAt time.Time
}

// EvaluationRecord is the score of one rollout against a goal.
type EvaluationRecord struct {
	GoalID           string
	Iteration        int
	Rollout          int
	Cost             float64
	PositionError    float64
	OrientationError float64
	Valid            bool
}

// Store persists goals and their evaluations.
type Store interface {
	Init(ctx context.Context) error
	SaveGoal(ctx context.Context, goal GoalRecord) error
	GetGoal(ctx context.Context, id string) (GoalRecord, bool, error)
	AppendEvaluations(ctx context.Context, evals []EvaluationRecord) error
	Evaluations(ctx context.Context, goalID string) ([]EvaluationRecord, error)
}
