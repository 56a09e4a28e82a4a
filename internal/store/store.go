// Package store persists benchmark runs, learning curves, trajectories
// and trained policies in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/store/migrations"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Curve kinds.
const (
	CurveTrain = "train"
	CurveEval  = "eval"
)

var ErrNotFound = errors.New("store: not found")

// Run is one recorded training or evaluation run.
type Run struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	Task       string        `json:"task"`
	Method     string        `json:"method"`
	Integrator string        `json:"integrator"`
	Seed       int64         `json:"seed"`
	Config     string        `json:"config,omitempty"`
	Status     string        `json:"status"`
	WallTime   time.Duration `json:"wall_time"`
	FinalCost  float64       `json:"final_cost"`
	Steps      int64         `json:"steps"`
	Notes      string        `json:"notes,omitempty"`
}

// Store is a SQLite-backed run database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path, creating it and applying embedded
// migrations as needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun inserts a new run record, assigning ID, CreatedAt and Status
// when unset.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
		   id, created_at, task, method, integrator, seed,
		   config, status, wall_ms, final_cost, steps, notes
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, toMillis(run.CreatedAt), run.Task, run.Method, run.Integrator, run.Seed,
		run.Config, run.Status, run.WallTime.Milliseconds(), run.FinalCost, run.Steps, run.Notes)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// FinishRun closes out a run with its final status and totals.
func (s *Store) FinishRun(ctx context.Context, id, status string, finalCost float64, wall time.Duration, steps int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, final_cost = ?, wall_ms = ?, steps = ? WHERE id = ?`,
		status, finalCost, wall.Milliseconds(), steps, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return nil
}

const runColumns = `id, created_at, task, method, integrator, seed, config, status, wall_ms, final_cost, steps, notes`

func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var run Run
	var createdMS, wallMS int64
	err := row.Scan(&run.ID, &createdMS, &run.Task, &run.Method, &run.Integrator, &run.Seed,
		&run.Config, &run.Status, &wallMS, &run.FinalCost, &run.Steps, &run.Notes)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = fromMillis(createdMS)
	run.WallTime = time.Duration(wallMS) * time.Millisecond
	return &run, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first, at most limit of them when
// limit is positive.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AppendCurve records consecutive curve values starting at the given
// step index, in one transaction. Re-appending a step overwrites it.
func (s *Store) AppendCurve(ctx context.Context, runID, kind string, start int, values []float64) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin curve tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO curve_points (run_id, kind, step, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare curve insert: %w", err)
	}
	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, runID, kind, start+i, v); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert curve point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit curve: %w", err)
	}
	return nil
}

// Curve returns the recorded values of one curve kind in step order.
func (s *Store) Curve(ctx context.Context, runID, kind string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM curve_points WHERE run_id = ? AND kind = ? ORDER BY step`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("query curve: %w", err)
	}
	defer rows.Close()

	var curve []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan curve point: %w", err)
		}
		curve = append(curve, v)
	}
	return curve, rows.Err()
}

// SaveTrajectory stores a rollout, one row per recorded state. The
// final state carries no paired control.
func (s *Store) SaveTrajectory(ctx context.Context, runID string, result *dynamics.Result) error {
	if result == nil || len(result.States) == 0 {
		return fmt.Errorf("store: empty trajectory")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trajectory tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO trajectories (run_id, step, t, state, control) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare trajectory insert: %w", err)
	}
	for i, x := range result.States {
		stateJSON, err := json.Marshal(x)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode state: %w", err)
		}
		controlJSON := []byte("[]")
		if i < len(result.Controls) {
			if controlJSON, err = json.Marshal(result.Controls[i]); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("encode control: %w", err)
			}
		}
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}
		if _, err := stmt.ExecContext(ctx, runID, i, t, string(stateJSON), string(controlJSON)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert trajectory row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trajectory: %w", err)
	}
	return nil
}

// Trajectory reconstructs a stored rollout.
func (s *Store) Trajectory(ctx context.Context, runID string) (*dynamics.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t, state, control FROM trajectories WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	result := &dynamics.Result{}
	for rows.Next() {
		var t float64
		var stateJSON, controlJSON string
		if err := rows.Scan(&t, &stateJSON, &controlJSON); err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}
		var x dynamics.State
		if err := json.Unmarshal([]byte(stateJSON), &x); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		var u dynamics.Control
		if err := json.Unmarshal([]byte(controlJSON), &u); err != nil {
			return nil, fmt.Errorf("decode control: %w", err)
		}
		result.States = append(result.States, x)
		result.Times = append(result.Times, t)
		if len(u) > 0 {
			result.Controls = append(result.Controls, u)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trajectory: %w", err)
	}
	if len(result.States) == 0 {
		return nil, fmt.Errorf("%w: trajectory for run %s", ErrNotFound, runID)
	}
	result.StepsTaken = len(result.States) - 1
	return result, nil
}

// SavePolicy stores the serialized network for a run, replacing any
// previous one.
func (s *Store) SavePolicy(ctx context.Context, runID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO policies (run_id, data) VALUES (?, ?)`, runID, data)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

// LoadPolicy returns the serialized network for a run.
func (s *Store) LoadPolicy(ctx context.Context, runID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM policies WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: policy for run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return data, nil
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	for _, q := range []string{
		`DELETE FROM curve_points WHERE run_id = ?`,
		`DELETE FROM trajectories WHERE run_id = ?`,
		`DELETE FROM policies WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete run data: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return tx.Commit()
}
