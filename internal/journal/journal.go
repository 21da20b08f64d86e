package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/sampler"
)

// writeTimeout bounds a single tick insert so a locked file cannot stall
// the sampling loop.
const writeTimeout = 2 * time.Second

// RunInfo identifies the process that owns a run.
type RunInfo struct {
	DeviceID  string
	Version   string
	Transport string
}

// Run is one stored run with its final counters.
type Run struct {
	ID         string
	DeviceID   string
	Version    string
	Transport  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Stats      sampler.Stats
	Ticks      int
}

// Journal writes runs and ticks to a migrated database.
//
// Thread Safety:
//   - Methods are called from the sampling goroutine and from main before
//     and after the loop; they are not meant to overlap.
type Journal struct {
	db       *database.DB
	keepRuns int
	runID    string
}

// New returns a journal over db. keepRuns <= 0 disables pruning.
func New(db *database.DB, keepRuns int) *Journal {
	return &Journal{db: db, keepRuns: keepRuns}
}

// RunID returns the active run id, or "" before StartRun.
func (j *Journal) RunID() string {
	return j.runID
}

// StartRun inserts a new run row and makes it active.
//
// Parameters:
//   - ctx: Context for the insert
//   - info: Device, version and transport of this process
//   - at: Start time
//
// Returns:
//   - string: The new run id
//   - error: If the insert fails
func (j *Journal) StartRun(ctx context.Context, info RunInfo, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, device_id, version, transport, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, info.DeviceID, info.Version, info.Transport, at.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("starting run: %w", err)
	}
	j.runID = id
	return id, nil
}

// RecordTick appends one cycle outcome to the active run.
func (j *Journal) RecordTick(t sampler.Tick) error {
	if j.runID == "" {
		return ErrNoRun
	}

	var temp, hum sql.NullFloat64
	if t.Reading.Valid {
		temp = sql.NullFloat64{Float64: t.Reading.TemperatureCelsius, Valid: true}
		hum = sql.NullFloat64{Float64: t.Reading.HumidityPercent, Valid: true}
	}
	var errText sql.NullString
	if t.Err != nil {
		errText = sql.NullString{String: t.Err.Error(), Valid: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO ticks (run_id, at, outcome, temperature_c, humidity_pct, error) VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, t.At.UnixMilli(), string(t.Outcome), temp, hum, errText,
	)
	if err != nil {
		return fmt.Errorf("recording tick: %w", err)
	}
	return nil
}

// FinishRun stores the final counters on the active run and prunes old runs.
func (j *Journal) FinishRun(ctx context.Context, stats sampler.Stats, at time.Time) error {
	if j.runID == "" {
		return ErrNoRun
	}

	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, cycles = ?, published = ?, read_failures = ?, publish_failures = ?,
		        recoveries = ?, init_failures = ?, connect_attempts = ?
		 WHERE id = ?`,
		at.UnixMilli(), int64(stats.Cycles), int64(stats.Published),                      //nolint:gosec // Counters stay far below MaxInt64
		int64(stats.ReadFailures), int64(stats.PublishFailures),                          //nolint:gosec // As above
		int64(stats.Recoveries), int64(stats.InitFailures), int64(stats.ConnectAttempts), //nolint:gosec // As above
		j.runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	if _, err := j.Prune(ctx); err != nil {
		return err
	}
	return nil
}

// Prune deletes all but the newest keepRuns runs. Ticks go with their run
// through ON DELETE CASCADE.
//
// Returns:
//   - int64: Runs deleted
//   - error: If the delete fails
func (j *Journal) Prune(ctx context.Context) (int64, error) {
	if j.keepRuns <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, j.keepRuns)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return n, nil
}

// Runs returns up to limit runs, newest first, with their tick counts.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.device_id, r.version, r.transport, r.started_at, r.finished_at,
		       r.cycles, r.published, r.read_failures, r.publish_failures,
		       r.recoveries, r.init_failures, r.connect_attempts,
		       (SELECT COUNT(*) FROM ticks t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		var cycles, published, readFail, pubFail, recoveries, initFail, connects int64
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Version, &r.Transport, &started, &finished,
			&cycles, &published, &readFail, &pubFail, &recoveries, &initFail, &connects, &r.Ticks); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			ft := time.UnixMilli(finished.Int64)
			r.FinishedAt = &ft
		}
		r.Stats = sampler.Stats{
			Cycles:          uint64(cycles),     //nolint:gosec // Stored from uint64
			Published:       uint64(published),  //nolint:gosec // Stored from uint64
			ReadFailures:    uint64(readFail),   //nolint:gosec // Stored from uint64
			PublishFailures: uint64(pubFail),    //nolint:gosec // Stored from uint64
			Recoveries:      uint64(recoveries), //nolint:gosec // Stored from uint64
			InitFailures:    uint64(initFail),   //nolint:gosec // Stored from uint64
			ConnectAttempts: uint64(connects),   //nolint:gosec // Stored from uint64
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
