package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Store records benchmark runs and their scores.
type Store interface {
	// RecordRun stores a run and all of its scores atomically. An empty run ID
	// is replaced with a new one, which is returned.
	RecordRun(ctx context.Context, run models.RunRecord, scores []models.ReviewScore) (string, error)
	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
	// RunScores returns the scores recorded for a run.
	RunScores(ctx context.Context, runID string) ([]models.ReviewScore, error)
	// Summary averages available scores per reviewer, model and task across runs.
	Summary(ctx context.Context) ([]models.ScoreSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createTables = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	input_chars INTEGER NOT NULL,
	models INTEGER NOT NULL,
	reviewers INTEGER NOT NULL,
	markdown_path TEXT NOT NULL DEFAULT '',
	html_path TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS run_scores (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	reviewer_id TEXT NOT NULL,
	model_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	critique TEXT NOT NULL,
	parse_failed INTEGER NOT NULL DEFAULT 0,
	unavailable INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_run_scores_run ON run_scores(run_id, seq);
`

// New opens the history database and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// RecordRun stores a run and its scores in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run models.RunRecord, scores []models.ReviewScore) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, input_chars, models, reviewers, markdown_path, html_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.InputChars, run.Models, run.Reviewers, run.MarkdownPath, run.HTMLPath,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_scores (run_id, seq, reviewer_id, model_id, task_id, score, critique, parse_failed, unavailable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare score insert: %w", err)
	}
	defer stmt.Close()

	for i, sc := range scores {
		_, err := stmt.ExecContext(ctx, run.ID, i, sc.ReviewerID, sc.ModelID, sc.TaskID, sc.Score, sc.Critique, sc.ParseFailed, sc.Unavailable)
		if err != nil {
			return "", fmt.Errorf("insert score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT id, started_at, finished_at, input_chars, models, reviewers, markdown_path, html_path
		 FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.InputChars, &r.Models, &r.Reviewers, &r.MarkdownPath, &r.HTMLPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunScores returns a run's scores in the order they were recorded.
func (s *SQLiteStore) RunScores(ctx context.Context, runID string) ([]models.ReviewScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reviewer_id, model_id, task_id, score, critique, parse_failed, unavailable
		 FROM run_scores WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run scores: %w", err)
	}
	defer rows.Close()

	var scores []models.ReviewScore
	for rows.Next() {
		var sc models.ReviewScore
		if err := rows.Scan(&sc.ReviewerID, &sc.ModelID, &sc.TaskID, &sc.Score, &sc.Critique, &sc.ParseFailed, &sc.Unavailable); err != nil {
			return nil, fmt.Errorf("scan run score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// Summary averages available scores across all runs.
func (s *SQLiteStore) Summary(ctx context.Context) ([]models.ScoreSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reviewer_id, model_id, task_id, COUNT(DISTINCT run_id), AVG(score)
		 FROM run_scores WHERE unavailable = 0
		 GROUP BY reviewer_id, model_id, task_id
		 ORDER BY reviewer_id, model_id, task_id`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreSummary
	for rows.Next() {
		var ss models.ScoreSummary
		if err := rows.Scan(&ss.ReviewerID, &ss.ModelID, &ss.TaskID, &ss.Runs, &ss.Average); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
