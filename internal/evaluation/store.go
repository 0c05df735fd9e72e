package evaluation

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("evaluation run not found")

// schema.sql creates the run, per-sample and skipped-item tables.
//
//go:embed schema.sql
var schemaSQL string

// Store persists evaluation runs in SQLite.
type Store struct {
	db *sql.DB
}

// RunSummary is a run without its per-sample rows.
type RunSummary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Decoder        string    `json:"decoder"`
	Notes          string    `json:"notes,omitempty"`
	Precision      float64   `json:"precision"`
	MeanPixelError float64   `json:"mean_pixel_error"`
	SampleCount    int       `json:"sample_count"`
	SkippedCount   int       `json:"skipped_count"`
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open evaluation store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize evaluation schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists run and its samples in one transaction. An empty ID is
// replaced with a new UUID.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO eval_runs (
			run_id, created_at, decoder, input_width, input_height,
			output_stride, kernel_size, notes, precision, mean_pixel_error,
			sample_count, skipped_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Decoder,
		run.Geometry.InputSize.Width, run.Geometry.InputSize.Height,
		run.Geometry.OutputStride, run.Geometry.KernelSize, run.Notes,
		run.Precision, run.MeanPixelError, len(run.Samples), len(run.Skipped),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, rs := range run.Samples {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO eval_samples (
				run_id, seq, image_name, truth_x, truth_y, pred_x, pred_y, dx, dy, pixel_error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, rs.ImageName, rs.Truth.X, rs.Truth.Y, rs.Predicted.X, rs.Predicted.Y,
			rs.DX, rs.DY, rs.PixelError,
		)
		if err != nil {
			return fmt.Errorf("insert sample %s: %w", rs.ImageName, err)
		}
	}
	for i, sk := range run.Skipped {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO eval_skipped (run_id, seq, image_name, reason) VALUES (?, ?, ?, ?)`,
			run.ID, i, sk.ImageName, sk.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert skipped %s: %w", sk.ImageName, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run with all of its samples.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		run     Run
		created int64
		notes   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, decoder, input_width, input_height,
		       output_stride, kernel_size, notes, precision, mean_pixel_error
		FROM eval_runs
		WHERE run_id = ?`, id).Scan(
		&run.ID, &created, &run.Decoder,
		&run.Geometry.InputSize.Width, &run.Geometry.InputSize.Height,
		&run.Geometry.OutputStride, &run.Geometry.KernelSize, &notes,
		&run.Precision, &run.MeanPixelError,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	run.Notes = notes.String

	if run.Samples, err = s.runSamples(ctx, id); err != nil {
		return nil, err
	}
	if run.Skipped, err = s.runSkipped(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) runSamples(ctx context.Context, id string) ([]RunSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT image_name, truth_x, truth_y, pred_x, pred_y, dx, dy, pixel_error
		FROM eval_samples
		WHERE run_id = ?
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []RunSample
	for rows.Next() {
		var rs RunSample
		var truth, pred geometry.GridPoint
		if err := rows.Scan(&rs.ImageName, &truth.X, &truth.Y, &pred.X, &pred.Y, &rs.DX, &rs.DY, &rs.PixelError); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		rs.Truth, rs.Predicted = truth, pred
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *Store) runSkipped(ctx context.Context, id string) ([]Skipped, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_name, reason FROM eval_skipped WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query skipped: %w", err)
	}
	defer rows.Close()

	var out []Skipped
	for rows.Next() {
		var sk Skipped
		if err := rows.Scan(&sk.ImageName, &sk.Reason); err != nil {
			return nil, fmt.Errorf("scan skipped row: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// ListRuns returns run summaries, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, decoder, notes, precision, mean_pixel_error,
		       sample_count, skipped_count
		FROM eval_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var created int64
		var notes sql.NullString
		if err := rows.Scan(&rs.ID, &created, &rs.Decoder, &notes, &rs.Precision,
			&rs.MeanPixelError, &rs.SampleCount, &rs.SkippedCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		rs.CreatedAt = time.Unix(0, created).UTC()
		rs.Notes = notes.String
		out = append(out, rs)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its samples.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM eval_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
