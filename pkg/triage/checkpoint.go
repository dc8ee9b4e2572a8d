package triage

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sfioritto/inbox-triage/pkg/errors"
)

// CheckpointStore persists per-stage results as they complete, so a fatal
// failure late in the run does not discard the categorization already
// paid for. A failed run still produces no digest; checkpoints exist for
// post-mortem and replay, not partial reporting.
type CheckpointStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCheckpointStore opens (and initializes) a SQLite-backed store at
// path. ":memory:" is accepted for tests.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to open checkpoint database"),
			errors.Fields{"path": path})
	}

	// WAL mode for better concurrency with readers inspecting a live run.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CheckpointFailed, "failed to enable WAL mode")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS stage_results (
		run_id     TEXT NOT NULL,
		stage      TEXT NOT NULL,
		result     TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, stage)
	);
	CREATE INDEX IF NOT EXISTS idx_stage_results_run_id ON stage_results(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CheckpointFailed, "failed to initialize checkpoint schema")
	}

	return &CheckpointStore{db: db}, nil
}

// SaveStage upserts one stage's results for a run.
func (s *CheckpointStore) SaveStage(runID, stage string, results []StageResult) error {
	value, err := json.Marshal(results)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to marshal stage results"),
			errors.Fields{"run_id": runID, "stage": stage})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO stage_results (run_id, stage, result)
	VALUES (?, ?, ?)
	ON CONFLICT(run_id, stage) DO UPDATE SET
		result = excluded.result,
		created_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.Exec(query, runID, stage, string(value)); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to save stage checkpoint"),
			errors.Fields{"run_id": runID, "stage": stage})
	}
	return nil
}

// LoadRun returns the persisted stage results of a run, keyed by stage
// name.
func (s *CheckpointStore) LoadRun(runID string) (map[string][]StageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT stage, result FROM stage_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to load run checkpoints"),
			errors.Fields{"run_id": runID})
	}
	defer rows.Close()

	out := make(map[string][]StageResult)
	for rows.Next() {
		var stage, value string
		if err := rows.Scan(&stage, &value); err != nil {
			return nil, errors.Wrap(err, errors.CheckpointFailed, "failed to scan checkpoint row")
		}
		var results []StageResult
		if err := json.Unmarshal([]byte(value), &results); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.CheckpointFailed, "failed to decode checkpoint row"),
				errors.Fields{"run_id": runID, "stage": stage})
		}
		out[stage] = results
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
