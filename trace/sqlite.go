package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists traces to a sqlite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a store for the database at path. Init opens it and creates the tables.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open trace database %s", s.path)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "open trace database %s", s.path)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create trace tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveGoal(ctx context.Context, goal GoalRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tolerance, err := json.Marshal(goal.Tolerance)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO goals (id, source, x, y, z, o_x, o_y, o_z, theta, tolerance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			x = excluded.x, y = excluded.y, z = excluded.z,
			o_x = excluded.o_x, o_y = excluded.o_y, o_z = excluded.o_z, theta = excluded.theta,
			tolerance = excluded.tolerance,
			created_at = excluded.created_at
	`, goal.ID, goal.Source,
		goal.Pose[0], goal.Pose[1], goal.Pose[2], goal.Pose[3], goal.Pose[4], goal.Pose[5], goal.Pose[6],
		string(tolerance), goal.CreatedAt.UnixNano())
	return err
}

func (s *SQLiteStore) GetGoal(ctx context.Context, id string) (GoalRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return GoalRecord{}, false, err
	}

	var (
		goal      = GoalRecord{ID: id}
		tolerance string
		created   int64
	)
	err = db.QueryRowContext(ctx, `
		SELECT source, x, y, z, o_x, o_y, o_z, theta, tolerance, created_at FROM goals WHERE id = ?
	`, id).Scan(&goal.Source,
		&goal.Pose[0], &goal.Pose[1], &goal.Pose[2], &goal.Pose[3], &goal.Pose[4], &goal.Pose[5], &goal.Pose[6],
		&tolerance, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GoalRecord{}, false, nil
		}
		return GoalRecord{}, false, err
	}
	if err := json.Unmarshal([]byte(tolerance), &goal.Tolerance); err != nil {
		return GoalRecord{}, false, errors.Wrapf(err, "decode tolerance of goal %s", id)
	}
	goal.CreatedAt = time.Unix(0, created)
	return goal, true, nil
}

func (s *SQLiteStore) AppendEvaluations(ctx context.Context, evals []EvaluationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, e := range evals {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evaluations (goal_id, iteration, rollout, cost, position_error, orientation_error, valid)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.GoalID, e.Iteration, e.Rollout, e.Cost, e.PositionError, e.OrientationError, e.Valid); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Evaluations(ctx context.Context, goalID string) ([]EvaluationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT iteration, rollout, cost, position_error, orientation_error, valid
		FROM evaluations WHERE goal_id = ? ORDER BY seq
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []EvaluationRecord
	for rows.Next() {
		e := EvaluationRecord{GoalID: goalID}
		if err := rows.Scan(&e.Iteration, &e.Rollout, &e.Cost, &e.PositionError, &e.OrientationError, &e.Valid); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// Close closes the database. The store can be initialized again afterwards.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			x REAL NOT NULL, y REAL NOT NULL, z REAL NOT NULL,
			o_x REAL NOT NULL, o_y REAL NOT NULL, o_z REAL NOT NULL, theta REAL NOT NULL,
			tolerance TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS evaluations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			goal_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			rollout INTEGER NOT NULL,
			cost REAL NOT NULL,
			position_error REAL NOT NULL,
			orientation_error REAL NOT NULL,
			valid INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS evaluations_goal ON evaluations (goal_id);
	`)
	return err
}
