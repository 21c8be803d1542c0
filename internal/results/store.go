package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gazefix/internal/config"
	"gazefix/internal/fixation"
	"gazefix/internal/services"
)

// ErrRunNotFound indicates no run matched the requested identifier.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun indicates a run ID prefix matched more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

// Store persists batch runs, per-recording outcomes, and fixation rows in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout is fixed-width so lexical and chronological order agree.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open initializes or connects to the results database in the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the results database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun registers a new run and returns it with a fresh identifier.
func (s *Store) BeginRun(ctx context.Context, dataDir, outputDir string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		DataDir:   dataDir,
		OutputDir: outputDir,
		Status:    RunRunning,
		StartedAt: s.now().UTC(),
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, data_dir, output_dir, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DataDir, run.OutputDir, string(run.Status), run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordFile stores the outcome of one recording. Recording the same path
// twice within a run replaces the earlier outcome.
func (s *Store) RecordFile(ctx context.Context, runID string, outcome FileOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = s.now().UTC()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO recordings (run_id, path, participant, trial, layout, samples, outcome, fixations, detail, elapsed_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, path) DO UPDATE SET
		   participant = excluded.participant,
		   trial = excluded.trial,
		   layout = excluded.layout,
		   samples = excluded.samples,
		   outcome = excluded.outcome,
		   fixations = excluded.fixations,
		   detail = excluded.detail,
		   elapsed_ms = excluded.elapsed_ms,
		   recorded_at = excluded.recorded_at`,
		runID, outcome.Path, outcome.Participant, outcome.Trial, outcome.Layout, outcome.Samples,
		string(outcome.Outcome), outcome.Fixations, outcome.Detail, outcome.Elapsed.Milliseconds(),
		outcome.RecordedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", outcome.Path, err)
	}
	return nil
}

// SaveFixations replaces the stored fixation rows of a run with rows, keeping
// their order.
func (s *Store) SaveFixations(ctx context.Context, runID string, rows []fixation.Row) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin fixation tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM fixations WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear fixations: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO fixations (
			run_id, seq, participant, trial, start_time, end_time, duration, x_pos, y_pos,
			flanked_by_data_loss, fraction_interpolated, weight_cutoff, rms_xy, bcea, range_x, range_y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare fixation insert: %w", err)
		}
		defer stmt.Close()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				runID, i, row.Participant, row.Trial,
				row.StartTime, row.EndTime, row.Duration, row.XPos, row.YPos,
				boolToInt(row.FlankedByDataLoss), row.FractionInterpolated, row.WeightCutoff,
				row.RMSxy, row.BCEA, row.RangeX, row.RangeY,
			); err != nil {
				return fmt.Errorf("insert fixation %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := RunCompleted
	message := ""
	if runErr != nil {
		status = RunFailed
		message = runErr.Error()
	}
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), message, s.now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `r.id, r.data_dir, r.output_dir, r.status, r.error_message, r.started_at, r.finished_at,
	(SELECT COUNT(1) FROM recordings WHERE run_id = r.id),
	(SELECT COUNT(1) FROM recordings WHERE run_id = r.id AND outcome = 'processed'),
	(SELECT COALESCE(SUM(fixations), 0) FROM recordings WHERE run_id = r.id)`

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.started_at DESC, r.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID equals or uniquely starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs r WHERE r.id = ? OR r.id LIKE ? ESCAPE '\' ORDER BY r.id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case found[0].ID == id, len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// RunFiles returns the recording outcomes of a run in processing order.
func (s *Store) RunFiles(ctx context.Context, runID string) ([]FileOutcome, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT path, participant, trial, layout, samples, outcome, fixations, detail, elapsed_ms, recorded_at
		 FROM recordings WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run files: %w", err)
	}
	defer rows.Close()

	var out []FileOutcome
	for rows.Next() {
		var (
			fo         FileOutcome
			outcome    string
			elapsedMS  int64
			recordedAt string
		)
		if err := rows.Scan(&fo.Path, &fo.Participant, &fo.Trial, &fo.Layout, &fo.Samples, &outcome,
			&fo.Fixations, &fo.Detail, &elapsedMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		fo.Outcome = services.Outcome(outcome)
		fo.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		fo.RecordedAt = parseTime(recordedAt)
		out = append(out, fo)
	}
	return out, rows.Err()
}

// RunFixations returns the stored fixation rows of a run in table order.
func (s *Store) RunFixations(ctx context.Context, runID string) ([]fixation.Row, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT participant, trial, start_time, end_time, duration, x_pos, y_pos, flanked_by_data_loss,
		        fraction_interpolated, weight_cutoff, rms_xy, bcea, range_x, range_y
		 FROM fixations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run fixations: %w", err)
	}
	defer rows.Close()

	var out []fixation.Row
	for rows.Next() {
		var (
			row     fixation.Row
			flanked int
		)
		if err := rows.Scan(&row.Participant, &row.Trial, &row.StartTime, &row.EndTime, &row.Duration,
			&row.XPos, &row.YPos, &flanked, &row.FractionInterpolated, &row.WeightCutoff,
			&row.RMSxy, &row.BCEA, &row.RangeX, &row.RangeY); err != nil {
			return nil, fmt.Errorf("scan fixation: %w", err)
		}
		row.FlankedByDataLoss = flanked != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &run.DataDir, &run.OutputDir, &status, &run.ErrorMessage,
		&startedAt, &finishedAt, &run.Files, &run.Processed, &run.Fixations); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	return &run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
