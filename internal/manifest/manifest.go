// Package manifest records which artifacts each pipeline run produced.
package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Artifact kinds.
const (
	KindTile    = "tile"
	KindMask    = "mask"
	KindWeight  = "weight"
	KindLookup  = "lookup"
	KindPreview = "preview"
)

// Run is one invocation of a pipeline stage.
type Run struct {
	RunID      string
	Stage      string
	Source     string
	StartedAt  int64
	FinishedAt int64
}

// Artifact is the outcome of persisting a single file.
type Artifact struct {
	Kind string
	Path string
	// Err is nil when the artifact was written.
	Err error
}

// Summary counts the artifacts of a run.
type Summary struct {
	Written int
	Failed  int
	ByKind  map[string]int
}

// Store is a SQLite-backed manifest.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the manifest database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create manifest dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id        TEXT PRIMARY KEY,
			stage         TEXT NOT NULL,
			source        TEXT,
			started_at    BIGINT NOT NULL,
			finished_at   BIGINT
		);
		CREATE TABLE IF NOT EXISTS artifacts (
			run_id        TEXT NOT NULL,
			kind          TEXT NOT NULL,
			path          TEXT NOT NULL,
			ok            INTEGER NOT NULL,
			error         TEXT,
			recorded_at   BIGINT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create manifest schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a new run and returns its id.
func (s *Store) BeginRun(stage, source string) (string, error) {
	runID := uuid.New().String()
	_, err := s.db.Exec(`INSERT INTO runs (run_id, stage, source, started_at) VALUES (?, ?, ?, ?)`,
		runID, stage, source, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the end time of a run.
func (s *Store) FinishRun(runID string) error {
	res, err := s.db.Exec(`UPDATE runs SET finished_at = ? WHERE run_id = ?`, time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// Record stores the outcome of each artifact under runID in one transaction.
func (s *Store) Record(runID string, artifacts ...Artifact) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	now := time.Now().UnixNano()
	for _, a := range artifacts {
		ok := 1
		var msg sql.NullString
		if a.Err != nil {
			ok = 0
			msg = sql.NullString{String: a.Err.Error(), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO artifacts (run_id, kind, path, ok, error, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, a.Kind, a.Path, ok, msg, now); err != nil {
			return errors.Join(fmt.Errorf("insert artifact %s: %w", a.Path, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Run returns the stored run.
func (s *Store) Run(runID string) (*Run, error) {
	var r Run
	var source sql.NullString
	var finished sql.NullInt64
	err := s.db.QueryRow(`SELECT run_id, stage, source, started_at, finished_at FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.Stage, &source, &r.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	r.Source = source.String
	r.FinishedAt = finished.Int64
	return &r, nil
}

// Summary counts written and failed artifacts of a run.
func (s *Store) Summary(runID string) (*Summary, error) {
	rows, err := s.db.Query(`SELECT kind, ok, COUNT(*) FROM artifacts WHERE run_id = ? GROUP BY kind, ok`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	sum := &Summary{ByKind: make(map[string]int)}
	for rows.Next() {
		var kind string
		var ok, count int
		if err := rows.Scan(&kind, &ok, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if ok == 1 {
			sum.Written += count
			sum.ByKind[kind] += count
		} else {
			sum.Failed += count
		}
	}
	return sum, rows.Err()
}

// FailedPaths lists the artifacts of a run that could not be written.
func (s *Store) FailedPaths(runID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM artifacts WHERE run_id = ? AND ok = 0 ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
