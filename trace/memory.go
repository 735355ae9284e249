package trace

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var errNotInitialized = errors.New("trace store is not initialized")

// MemoryStore keeps traces for the lifetime of the process.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	goals       map[string]GoalRecord
	evaluations map[string][]EvaluationRecord
}

// NewMemoryStore returns an empty store. Init must be called before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.goals = make(map[string]GoalRecord)
	s.evaluations = make(map[string][]EvaluationRecord)
	return nil
}

func (s *MemoryStore) SaveGoal(_ context.Context, goal GoalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.goals[goal.ID] = goal
	return nil
}

func (s *MemoryStore) GetGoal(_ context.Context, id string) (GoalRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return GoalRecord{}, false, errNotInitialized
	}
	goal, ok := s.goals[id]
	return goal, ok, nil
}

func (s *MemoryStore) AppendEvaluations(_ context.Context, evals []EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	for _, e := range evals {
		s.evaluations[e.GoalID] = append(s.evaluations[e.GoalID], e)
	}
	return nil
}

func (s *MemoryStore) Evaluations(_ context.Context, goalID string) ([]EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	return append([]EvaluationRecord(nil), s.evaluations[goalID]...), nil
}
