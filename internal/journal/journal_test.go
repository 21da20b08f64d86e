package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/sampler"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/migrations"
)

var t0 = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func openJournal(t *testing.T, keepRuns int) *Journal {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.JournalConfig{
		Path:        filepath.Join(t.TempDir(), "climate.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return New(db, keepRuns)
}

var info = RunInfo{DeviceID: "living-room", Version: "test", Transport: "mqtt"}

// ============================================================================
// Runs
// ============================================================================

func TestStartRun(t *testing.T) {
	j := openJournal(t, 0)
	ctx := context.Background()

	id, err := j.StartRun(ctx, info, t0)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("run id %q is not a UUID: %v", id, err)
	}
	if j.RunID() != id {
		t.Errorf("RunID() = %q, want %q", j.RunID(), id)
	}

	runs, err := j.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.DeviceID != "living-room" || r.Transport != "mqtt" || !r.StartedAt.Equal(t0) {
		t.Errorf("run = %+v", r)
	}
	if r.FinishedAt != nil {
		t.Error("unfinished run has FinishedAt")
	}
}

func TestWithoutRun(t *testing.T) {
	j := openJournal(t, 0)

	if err := j.RecordTick(sampler.Tick{At: t0}); !errors.Is(err, ErrNoRun) {
		t.Errorf("RecordTick() error = %v, want ErrNoRun", err)
	}
	if err := j.FinishRun(context.Background(), sampler.Stats{}, t0); !errors.Is(err, ErrNoRun) {
		t.Errorf("FinishRun() error = %v, want ErrNoRun", err)
	}
}

func TestRecordTicksAndFinish(t *testing.T) {
	j := openJournal(t, 0)
	ctx := context.Background()
	if _, err := j.StartRun(ctx, info, t0); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	ticks := []sampler.Tick{
		{
			At:      t0,
			Outcome: sampler.OutcomePublished,
			Reading: sensor.Reading{TemperatureCelsius: 21.5, HumidityPercent: 45, Valid: true},
		},
		{At: t0.Add(30 * time.Second), Outcome: sampler.OutcomeReadFailed, Err: errors.New("timeout")},
	}
	for _, tick := range ticks {
		if err := j.RecordTick(tick); err != nil {
			t.Fatalf("RecordTick() error = %v", err)
		}
	}

	var errText string
	err := j.db.QueryRowContext(ctx,
		`SELECT error FROM ticks WHERE outcome = 'read_failed'`).Scan(&errText)
	if err != nil || errText != "timeout" {
		t.Errorf("stored error = %q, %v", errText, err)
	}

	stats := sampler.Stats{Cycles: 2, Published: 1, ReadFailures: 1, Recoveries: 3, InitFailures: 2, ConnectAttempts: 4}
	end := t0.Add(time.Minute)
	if err := j.FinishRun(ctx, stats, end); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := j.Runs(ctx, 1)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	r := runs[0]
	if r.Ticks != 2 {
		t.Errorf("Ticks = %d, want 2", r.Ticks)
	}
	if r.FinishedAt == nil || !r.FinishedAt.Equal(end) {
		t.Errorf("FinishedAt = %v, want %v", r.FinishedAt, end)
	}
	if r.Stats.Cycles != 2 || r.Stats.Published != 1 || r.Stats.ReadFailures != 1 {
		t.Errorf("Stats = %+v", r.Stats)
	}
	if r.Stats.Recoveries != 3 || r.Stats.InitFailures != 2 || r.Stats.ConnectAttempts != 4 {
		t.Errorf("recovery counters = %+v", r.Stats)
	}
}

func TestPruneKeepsNewestRuns(t *testing.T) {
	j := openJournal(t, 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := j.StartRun(ctx, info, t0.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
		if err := j.RecordTick(sampler.Tick{At: t0, Outcome: sampler.OutcomePublished}); err != nil {
			t.Fatalf("RecordTick() error = %v", err)
		}
		ids = append(ids, id)
	}

	if err := j.FinishRun(ctx, sampler.Stats{}, t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := j.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[3] || runs[1].ID != ids[2] {
		t.Errorf("kept runs = %+v, want the two newest", runs)
	}

	var orphans int
	if err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticks WHERE run_id NOT IN (SELECT id FROM runs)`).Scan(&orphans); err != nil {
		t.Fatalf("counting ticks: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphaned ticks = %d, want 0", orphans)
	}
}

func TestPruneDisabled(t *testing.T) {
	j := openJournal(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := j.StartRun(ctx, info, t0); err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
	}

	n, err := j.Prune(ctx)
	if err != nil || n != 0 {
		t.Errorf("Prune() = %d, %v; want 0, nil", n, err)
	}
}

func TestImplementsRecorder(t *testing.T) {
	var _ sampler.Recorder = (*Journal)(nil)
}
