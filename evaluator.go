package stomp_costs

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RolloutResult is the score of one rollout.
type RolloutResult struct {
	Rollout int
	Costs   []float64
	Valid   bool

	// Filled in when the cost function exposes its intermediate errors.
	PositionError    float64
	OrientationError float64
}

type evaluator interface {
	Evaluate(parameters mat.Matrix) (*Evaluation, error)
}

// Cost returns the terminal cost.
func (r RolloutResult) Cost() float64 {
	if len(r.Costs) == 0 {
		return 0
	}
	return r.Costs[len(r.Costs)-1]
}

// EvaluateRollouts scores every rollout of one iteration, running at most limit at a time.
// Results are returned in rollout order. The first error cancels rollouts not yet started.
func EvaluateRollouts(ctx context.Context, cf CostFunction, iteration int, rollouts []mat.Matrix, limit int) ([]RolloutResult, error) {
	results := make([]RolloutResult, len(rollouts))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, params := range rollouts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := evaluateRollout(cf, params, iteration, i)
			if err != nil {
				return errors.Wrapf(err, "rollout %d", i)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateRollout scores one rollout, keeping the scaled errors when cf exposes them.
func evaluateRollout(cf CostFunction, params mat.Matrix, iteration, rollout int) (RolloutResult, error) {
	ev, ok := cf.(evaluator)
	if !ok {
		costs, valid, err := cf.ComputeCosts(params, iteration, rollout)
		if err != nil {
			return RolloutResult{}, err
		}
		return RolloutResult{Rollout: rollout, Costs: costs, Valid: valid}, nil
	}
	eval, err := ev.Evaluate(params)
	if err != nil {
		return RolloutResult{}, err
	}
	return RolloutResult{
		Rollout:          rollout,
		Costs:            eval.Costs,
		Valid:            eval.Valid,
		PositionError:    eval.Scaled.Position,
		OrientationError: eval.Scaled.Orientation,
	}, nil
}

// BestRollout returns the index of the valid rollout with the lowest cost, or of the lowest
// cost rollout overall when none is valid. It returns -1 for an empty slice.
func BestRollout(results []RolloutResult) int {
	best := -1
	for i, r := range results {
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		switch {
		case r.Valid && !b.Valid:
			best = i
		case r.Valid == b.Valid && r.Cost() < b.Cost():
			best = i
		}
	}
	return best
}
