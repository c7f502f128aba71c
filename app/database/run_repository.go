package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/mail-comb/app/harvest"
)

// Fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRepository handles database operations for harvest runs
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun inserts a queued run
func (r *RunRepository) CreateRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, source, from_date, to_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.FromDate, run.ToDate, run.Status, formatTime(run.CreatedAt))

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// StartRun marks a run as running
func (r *RunRepository) StartRun(id string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET status = 'running', started_at = ?
		WHERE id = ?
	`, formatTime(startedAt), id)

	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	return nil
}

// FinishRun stores the final status and outcome counters of a run
func (r *RunRepository) FinishRun(id string, status string, recordCount int, stats harvest.Stats, errMsg string, finishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET status = ?, record_count = ?, duplicates = ?, skipped = ?, dropped = ?,
		    queued = ?, retried = ?, failed = ?, rate_limited = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, status, recordCount, stats.Duplicates, stats.Skipped, stats.Dropped,
		stats.Queued, stats.Retried, stats.Failed, stats.RateLimited, errMsg, formatTime(finishedAt), id)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID, nil when it does not exist
func (r *RunRepository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(selectRuns+` WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs first
func (r *RunRepository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(selectRuns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

const selectRuns = `
	SELECT id, source, from_date, to_date, status, record_count,
	       duplicates, skipped, dropped, queued, retried, failed, rate_limited,
	       error, created_at, started_at, finished_at
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	var startedAt, finishedAt sql.NullString

	err := row.Scan(
		&run.ID, &run.Source, &run.FromDate, &run.ToDate, &run.Status, &run.RecordCount,
		&run.Stats.Duplicates, &run.Stats.Skipped, &run.Stats.Dropped, &run.Stats.Queued,
		&run.Stats.Retried, &run.Stats.Failed, &run.Stats.RateLimited,
		&run.Error, &createdAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Stats.Recorded = run.RecordCount

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if run.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return nil, err
	}

	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", value.String, err)
	}
	return &t, nil
}
