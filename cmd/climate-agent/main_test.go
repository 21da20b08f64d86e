package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/clock"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/kafka"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
	"github.com/nerrad567/gray-logic-climate/internal/sampler"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/aht20"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/bus"
	"github.com/nerrad567/gray-logic-climate/internal/shutdown"
)

// writeConfig writes content to a climate.yaml inside t.TempDir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "climate.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// ============================================================================
// Configuration path
// ============================================================================

func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"default", "", "", defaultConfigPath},
		{"env", "", "/etc/climate/env.yaml", "/etc/climate/env.yaml"},
		{"flag wins", "/tmp/flag.yaml", "/etc/climate/env.yaml", "/tmp/flag.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIMATE_CONFIG", tt.env)
			if got := getConfigPath(tt.flag); got != tt.want {
				t.Errorf("getConfigPath(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Startup failures
// ============================================================================

func TestRun_InvalidConfig(t *testing.T) {
	err := run("/nonexistent/path/climate.yaml", shutdown.New())
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v", err)
	}
}

func TestRun_ValidationError(t *testing.T) {
	t.Setenv("CLIMATE_DEVICE_ID", "")
	path := writeConfig(t, `
device:
  home_id: home-1
sensor:
  simulate: true
`)

	err := run(path, shutdown.New())
	if err == nil || !strings.Contains(err.Error(), "device.id") {
		t.Errorf("run() error = %v, want device.id validation failure", err)
	}
}

func TestRun_BrokerUnreachable(t *testing.T) {
	tests := []struct {
		name      string
		publisher string
	}{
		{
			name: "mqtt",
			publisher: `
publisher:
  transport: mqtt
mqtt:
  broker:
    host: 127.0.0.1
    port: 1
  connect_timeout: 2
`,
		},
		{
			name: "kafka",
			publisher: `
publisher:
  transport: kafka
kafka:
  brokers: ["127.0.0.1:1"]
mqtt:
  connect_timeout: 2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, `
device:
  id: living-room
  home_id: home-1
sensor:
  simulate: true
logging:
  output: stderr
`+tt.publisher)

			err := run(path, shutdown.New())
			if !errors.Is(err, publish.ErrConnectivity) {
				t.Errorf("run() error = %v, want ErrConnectivity", err)
			}
		})
	}
}

// ============================================================================
// Helpers
// ============================================================================

func TestOpenBusSimulate(t *testing.T) {
	dev, err := openBus(config.SensorConfig{Simulate: true, Address: 0x38})
	if err != nil {
		t.Fatalf("openBus() error = %v", err)
	}
	defer dev.Close() //nolint:errcheck // Test cleanup

	if _, ok := dev.(*bus.Fake); !ok {
		t.Errorf("openBus() = %T, want *bus.Fake", dev)
	}
	if dev.Addr() != 0x38 {
		t.Errorf("Addr() = 0x%02X, want 0x38", dev.Addr())
	}
}

func TestInitSensor(t *testing.T) {
	log := logging.Default()

	t.Run("first attempt succeeds", func(t *testing.T) {
		clk := clock.NewFake(time.Now())
		driver := aht20.New(aht20.Options{Clock: clk})
		dev := bus.NewFake(aht20.DefaultAddress)

		if err := initSensor(driver, dev, 3, clk, log); err != nil {
			t.Fatalf("initSensor() error = %v", err)
		}
		for _, d := range clk.Sleeps() {
			if d == initRetryDelay {
				t.Error("retry delay used on success")
			}
		}
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		clk := clock.NewFake(time.Now())
		driver := aht20.New(aht20.Options{Clock: clk})
		dev := bus.NewFake(aht20.DefaultAddress)
		dev.SetAbsent(true)

		err := initSensor(driver, dev, 3, clk, log)
		if !errors.Is(err, aht20.ErrBus) {
			t.Fatalf("initSensor() error = %v, want ErrBus", err)
		}
		if !strings.Contains(err.Error(), "after 3 attempts") {
			t.Errorf("initSensor() error = %v", err)
		}

		var retries int
		for _, d := range clk.Sleeps() {
			if d == initRetryDelay {
				retries++
			}
		}
		if retries != 2 {
			t.Errorf("retry sleeps = %d, want 2", retries)
		}
		if driver.State() != aht20.StateFaulted {
			t.Errorf("State() = %v, want faulted", driver.State())
		}
	})
}

func TestNewTransport(t *testing.T) {
	log := logging.Default()
	topics := mqtt.Topics{HomeID: "home-1", DeviceID: "living-room"}

	cfg := &config.Config{Device: config.DeviceConfig{ID: "living-room"}}
	cfg.Publisher.Transport = config.TransportMQTT
	if _, ok := newTransport(cfg, topics, log).(*mqtt.Client); !ok {
		t.Error("mqtt transport is not *mqtt.Client")
	}

	cfg.Publisher.Transport = config.TransportKafka
	cfg.Kafka.Brokers = []string{"127.0.0.1:9092"}
	if _, ok := newTransport(cfg, topics, log).(*kafka.Producer); !ok {
		t.Error("kafka transport is not *kafka.Producer")
	}
}

func TestOpenJournal(t *testing.T) {
	cfg := &config.Config{Device: config.DeviceConfig{ID: "living-room"}}
	cfg.Publisher.Transport = config.TransportMQTT
	cfg.Journal = config.JournalConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "journal", "climate.db"),
		WALMode:     true,
		BusyTimeout: 5,
		KeepRuns:    5,
	}

	db, j, err := openJournal(cfg, logging.Default())
	if err != nil {
		t.Fatalf("openJournal() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if j.RunID() == "" {
		t.Error("no run started")
	}
}

func TestPreviousRun(t *testing.T) {
	cfg := &config.Config{Device: config.DeviceConfig{ID: "living-room"}}
	cfg.Publisher.Transport = config.TransportMQTT
	cfg.Journal = config.JournalConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "climate.db"),
		BusyTimeout: 5,
	}
	ctx := context.Background()

	db, j, err := openJournal(cfg, logging.Default())
	if err != nil {
		t.Fatalf("openJournal() error = %v", err)
	}

	prev, err := previousRun(ctx, j)
	if err != nil {
		t.Fatalf("previousRun() error = %v", err)
	}
	if prev == nil || prev.ID != j.RunID() || prev.FinishedAt != nil {
		t.Fatalf("previousRun() = %+v, want unfinished run %s", prev, j.RunID())
	}
	logPreviousRun(logging.Default(), prev)

	stats := sampler.Stats{Cycles: 3, Published: 3, Recoveries: 1}
	if err := j.FinishRun(ctx, stats, time.Now()); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	firstID := j.RunID()
	_ = db.Close() //nolint:errcheck // Reopened below

	db, j, err = openJournal(cfg, logging.Default())
	if err != nil {
		t.Fatalf("second openJournal() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	runs, err := j.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 || runs[1].ID != firstID {
		t.Fatalf("Runs() = %+v, want new run then %s", runs, firstID)
	}
	if runs[1].FinishedAt == nil || runs[1].Stats.Recoveries != 1 {
		t.Errorf("first run = %+v, want finished with 1 recovery", runs[1])
	}
	logPreviousRun(logging.Default(), &runs[1])
}
