package trend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

const schema = `
CREATE TABLE IF NOT EXISTS alarm_runs (
	run_id     TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	status     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alarm_outputs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	set_name   TEXT NOT NULL,
	alarm      TEXT NOT NULL,
	algorithm  TEXT NOT NULL,
	value      REAL,
	error      REAL,
	status     TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES alarm_runs(run_id)
);

CREATE INDEX IF NOT EXISTS alarm_outputs_series
	ON alarm_outputs (alarm, algorithm, created_at);
`

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrDuplicateRun is returned when a run was already recorded.
	ErrDuplicateRun = errors.New("run already recorded")
	// ErrNoRuns is returned when the store holds no run yet.
	ErrNoRuns = errors.New("no runs recorded")
)

// Store keeps the output of every evaluated alarm across runs in SQLite.
type Store struct {
	db *sql.DB
}

// Sample is one recorded output of an alarm.
type Sample struct {
	// RunID identifies the run.
	RunID string
	// Time is the run timestamp.
	Time time.Time
	// Set is the alarm set name.
	Set string
	// Value is the output value; meaningful when Defined is set.
	Value float64
	// Defined is false for UNDEFINED or non-finite outputs.
	Defined bool
	// Error is the error bar; meaningful when HasError is set.
	Error float64
	// HasError tells whether the output carried an error bar.
	HasError bool
	// Status is the output status.
	Status alarm.Status
}

// Open opens (and creates if needed) the trend database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trend db: %w", err)
	}

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err = db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("migrate trend db: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores every result of the summary under its run id.
func (s *Store) Record(ctx context.Context, summary *alarm.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	var exists int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alarm_runs WHERE run_id = ?`, summary.RunID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", err)
	}

	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, summary.RunID)
	}

	created := summary.Timestamp.UTC().Format(timeLayout)

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO alarm_runs (run_id, created_at, status) VALUES (?, ?, ?)`,
		summary.RunID, created, summary.Status().String(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO alarm_outputs (run_id, created_at, set_name, alarm, algorithm, value, error, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for i := range summary.Results {
		r := &summary.Results[i]

		var value, bar sql.NullFloat64
		if r.Status() != alarm.StatusUndefined && finite(r.Output.Value()) {
			value = sql.NullFloat64{Float64: r.Output.Value(), Valid: true}
		}

		if e, ok := r.Output.Error(); ok && finite(e) {
			bar = sql.NullFloat64{Float64: e, Valid: true}
		}

		if _, err = stmt.ExecContext(ctx,
			summary.RunID, created, r.Set, r.Alarm, r.Algorithm, value, bar, r.Status().String(),
		); err != nil {
			return fmt.Errorf("insert output %s/%s: %w", r.Alarm, r.Algorithm, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Series returns the last limit outputs of an alarm and algorithm in
// chronological order. A non-positive limit returns the whole history.
func (s *Store) Series(ctx context.Context, alarmName, algorithm string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, set_name, value, error, status
		 FROM alarm_outputs
		 WHERE alarm = ? AND algorithm = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		alarmName, algorithm, limit)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var samples []Sample

	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}

		samples = append(samples, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}

	return samples, nil
}

// LatestRun returns the id of the most recent run.
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var runID string

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM alarm_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}

	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}

	return runID, nil
}

// scanSample reads one row of a series query.
func scanSample(rows *sql.Rows) (Sample, error) {
	var (
		sample        Sample
		created, text string
		value, bar    sql.NullFloat64
	)

	if err := rows.Scan(&sample.RunID, &created, &sample.Set, &value, &bar, &text); err != nil {
		return Sample{}, fmt.Errorf("scan output: %w", err)
	}

	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return Sample{}, fmt.Errorf("parse output time: %w", err)
	}

	status, err := alarm.ParseStatus(text)
	if err != nil {
		return Sample{}, fmt.Errorf("parse output status: %w", err)
	}

	sample.Time = ts
	sample.Status = status
	sample.Value, sample.Defined = value.Float64, value.Valid
	sample.Error, sample.HasError = bar.Float64, bar.Valid

	return sample, nil
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
