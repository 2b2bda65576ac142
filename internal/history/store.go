// Package history keeps finished runs in a local sqlite file so the
// operator can review what each profile did on previous days.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-warmup-automation/internal/runner"
)

type Store struct {
	db *sql.DB
}

// RunRecord summarizes one finished run.
type RunRecord struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Tasks      int       `json:"tasks"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	tasks       INTEGER NOT NULL,
	completed   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS step_results (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	profile_id   TEXT NOT NULL,
	profile_name TEXT NOT NULL,
	round        INTEGER NOT NULL,
	step         TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT '',
	screenshot   TEXT NOT NULL DEFAULT '',
	ts           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_step_results_run ON step_results(run_id);
`

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite handles one writer at a time; keep the pool honest.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun implements runner.Sink: one row for the run, one per step
// result, in a single transaction.
func (s *Store) SaveRun(snap runner.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO runs (id, status, started_at, finished_at, tasks, completed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, string(snap.Status),
		snap.StartedAt.UnixMilli(), snap.FinishedAt.UnixMilli(),
		len(snap.Queue), snap.Completed, snap.Failed, snap.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// Re-saving a run replaces its results instead of appending.
	if _, err := tx.Exec(`DELETE FROM step_results WHERE run_id = ?`, snap.RunID); err != nil {
		return fmt.Errorf("clear step results: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO step_results (run_id, profile_id, profile_name, round, step, outcome, detail, screenshot, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, res := range snap.Results {
		if _, err := stmt.Exec(
			snap.RunID, res.ProfileID, res.ProfileName, res.Round,
			res.Step, string(res.Outcome), res.Detail, res.Screenshot,
			res.Timestamp.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert step result: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, status, started_at, finished_at, tasks, completed, failed, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Status, &started, &finished,
			&rec.Tasks, &rec.Completed, &rec.Failed, &rec.Skipped); err != nil {
			return nil, err
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunResults returns all step results recorded for one run, in
// insertion order.
func (s *Store) RunResults(runID string) ([]runner.StepResult, error) {
	rows, err := s.db.Query(
		`SELECT profile_id, profile_name, round, step, outcome, detail, screenshot, ts
		 FROM step_results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []runner.StepResult
	for rows.Next() {
		var res runner.StepResult
		var outcome string
		var ts int64
		if err := rows.Scan(&res.ProfileID, &res.ProfileName, &res.Round,
			&res.Step, &outcome, &res.Detail, &res.Screenshot, &ts); err != nil {
			return nil, err
		}
		res.Outcome = runner.Outcome(outcome)
		res.Timestamp = time.UnixMilli(ts)
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
