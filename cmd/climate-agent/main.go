// Climate Agent - AHT20 temperature/humidity publisher
//
// This is the entry point for the climate agent. It samples one AHT20
// sensor over I²C at a fixed interval and publishes each reading to MQTT
// (or Kafka), optionally mirroring readings to InfluxDB and recording
// every cycle in a local SQLite journal.
//
// For configuration, see: configs/climate.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/clock"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/kafka"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/journal"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
	"github.com/nerrad567/gray-logic-climate/internal/sampler"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/aht20"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/bus"
	"github.com/nerrad567/gray-logic-climate/internal/shutdown"
	"github.com/nerrad567/gray-logic-climate/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither -config nor CLIMATE_CONFIG is set.
	defaultConfigPath = "configs/climate.yaml"

	// initRetryDelay separates startup initialisation attempts.
	initRetryDelay = time.Second

	// storeTimeout bounds journal and InfluxDB setup and teardown.
	storeTimeout = 10 * time.Second
)

// transport is a publisher whose first connect can be awaited.
type transport interface {
	publish.Publisher
	WaitConnected(timeout time.Duration) error
}

func main() {
	configFlag := flag.String("config", "", "path to climate.yaml (overrides CLIMATE_CONFIG)")
	flag.Parse()

	stop := shutdown.New()
	stop.Register()
	defer stop.Close()

	if err := run(getConfigPath(*configFlag), stop); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop.Close only unregisters signals
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - configPath: Path to climate.yaml
//   - stop: Stop flag polled by the sampling loop
//
// Returns:
//   - error: nil on clean shutdown, or the startup failure
func run(configPath string, stop sampler.StopSignal) error {
	log := logging.Default()
	log.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close() //nolint:errcheck // Nothing left to report to

	log.Info("climate agent starting",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"device_id", cfg.Device.ID,
		"label", cfg.Device.Label,
		"home_id", cfg.Device.HomeID,
		"interval", cfg.SampleInterval().String(),
		"transport", cfg.Publisher.Transport,
		"simulate", cfg.Sensor.Simulate,
	)

	dev, err := openBus(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("opening sensor bus: %w", err)
	}

	driver := aht20.New(aht20.Options{})
	driver.SetLogger(log)
	if err := initSensor(driver, dev, cfg.Sensor.InitAttempts, clock.Real{}, log); err != nil {
		driver.Shutdown()
		return fmt.Errorf("initialising sensor: %w", err)
	}
	if calibrated, err := driver.IsCalibrated(); err == nil {
		log.Info("sensor ready", "address", fmt.Sprintf("0x%02X", dev.Addr()), "calibrated", calibrated)
	}

	topics := mqtt.Topics{HomeID: cfg.Device.HomeID, DeviceID: cfg.Device.ID}
	pub := newTransport(cfg, topics, log)
	if err := connectTransport(pub, cfg.GetConnectTimeout()); err != nil {
		_ = pub.Close() //nolint:errcheck // Startup already failed
		driver.Shutdown()
		return fmt.Errorf("connecting to %s broker: %w", cfg.Publisher.Transport, err)
	}
	log.Info("broker connected", "transport", cfg.Publisher.Transport)

	opts := sampler.Options{
		Sensor:    driver,
		Device:    dev,
		Publisher: pub,
		Interval:  cfg.SampleInterval(),
		Topic:     topics.SensorReading(),
		QoS:       byte(cfg.MQTT.QoS), //nolint:gosec // Validated 0-2
		Retain:    cfg.MQTT.Retain,
		Offsets: sensor.CalibrationOffsets{
			Temperature: cfg.Sensor.Offsets.Temperature,
			Humidity:    cfg.Sensor.Offsets.Humidity,
		},
		Logger: log,
	}

	if cfg.InfluxDB.Enabled {
		influx, err := connectInflux(cfg, log)
		if err != nil {
			log.Warn("InfluxDB mirror disabled", "error", err)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influx.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			opts.Sink = influx
		}
	}

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		var db *database.DB
		db, jrnl, err = openJournal(cfg, log)
		if err != nil {
			log.Warn("journal disabled", "error", err)
			jrnl = nil
		} else {
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					log.Error("error closing journal", "error", closeErr)
				}
			}()
			opts.Recorder = jrnl
		}
	}

	loop, err := sampler.New(opts)
	if err != nil {
		_ = pub.Close() //nolint:errcheck // Startup already failed
		driver.Shutdown()
		return fmt.Errorf("creating sampling loop: %w", err)
	}

	log.Info("sampling started", "topic", opts.Topic)
	stats := loop.Run(stop)

	if jrnl != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := jrnl.FinishRun(ctx, stats, time.Now()); err != nil {
			log.Error("error finishing journal run", "error", err)
		}
		cancel()
	}

	log.Info("climate agent stopped",
		"iterations", stats.Iterations,
		"cycles", stats.Cycles,
		"published", stats.Published,
		"read_failures", stats.ReadFailures,
		"publish_failures", stats.PublishFailures,
		"recoveries", stats.Recoveries,
		"init_failures", stats.InitFailures,
		"connect_attempts", stats.ConnectAttempts,
	)
	return nil
}

// getConfigPath picks the -config flag, then CLIMATE_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("CLIMATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openBus returns the in-memory sensor in simulation mode, otherwise the
// configured I²C bus.
func openBus(cfg config.SensorConfig) (bus.Device, error) {
	addr := uint16(cfg.Address) //nolint:gosec // Validated 1-0x7F
	if cfg.Simulate {
		return bus.NewFake(addr), nil
	}
	return bus.OpenI2C(cfg.Bus, addr)
}

// initSensor calls Initialize up to attempts times, waiting initRetryDelay
// between failures.
func initSensor(driver *aht20.Driver, dev bus.Device, attempts int, clk clock.Clock, log *logging.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = driver.Initialize(dev); err == nil {
			return nil
		}
		log.Warn("sensor initialisation failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt < attempts {
			clk.Sleep(initRetryDelay)
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// newTransport builds the configured publisher.
func newTransport(cfg *config.Config, topics mqtt.Topics, log *logging.Logger) transport {
	if cfg.Publisher.Transport == config.TransportKafka {
		p := kafka.New(cfg.Kafka, cfg.GetKafkaWriteTimeout(), cfg.Device.ID, cfg.MQTT.QoS)
		p.SetLogger(log)
		return p
	}
	c := mqtt.New(cfg.MQTT, cfg.ClientID(), topics)
	c.SetLogger(log)
	return c
}

// connectTransport starts the first connect and waits for it.
func connectTransport(pub transport, timeout time.Duration) error {
	if err := pub.Connect(); err != nil {
		return err
	}
	if err := pub.WaitConnected(timeout); err != nil {
		if !errors.Is(err, publish.ErrConnectivity) {
			return fmt.Errorf("%w: %w", publish.ErrConnectivity, err)
		}
		return err
	}
	return nil
}

// connectInflux opens the optional telemetry mirror.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, err
	}
	client.SetDevice(cfg.Device.HomeID, cfg.Device.ID)
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// openJournal opens and migrates the journal database and starts a run.
func openJournal(cfg *config.Config, log *logging.Logger) (*database.DB, *journal.Journal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.Journal)
	if err != nil {
		return nil, nil, err
	}
	if err := db.HealthCheck(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // Already failing
		return nil, nil, err
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		_ = db.Close() //nolint:errcheck // Already failing
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	j := journal.New(db, cfg.Journal.KeepRuns)
	if prev, err := previousRun(ctx, j); err != nil {
		log.Warn("reading previous run failed", "error", err)
	} else if prev != nil {
		logPreviousRun(log, prev)
	}

	runID, err := j.StartRun(ctx, journal.RunInfo{
		DeviceID:  cfg.Device.ID,
		Version:   version,
		Transport: cfg.Publisher.Transport,
	}, time.Now())
	if err != nil {
		_ = db.Close() //nolint:errcheck // Already failing
		return nil, nil, err
	}
	log.Info("journal opened", "path", db.Path(), "run_id", runID)
	return db, j, nil
}

// previousRun returns the newest stored run, or nil for an empty journal.
func previousRun(ctx context.Context, j *journal.Journal) (*journal.Run, error) {
	runs, err := j.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// logPreviousRun reports how the last process ended. A run without a
// finish time was killed or lost power before shutdown completed.
func logPreviousRun(log *logging.Logger, r *journal.Run) {
	if r.FinishedAt == nil {
		log.Warn("previous run did not shut down cleanly",
			"run_id", r.ID,
			"started_at", r.StartedAt,
			"ticks", r.Ticks,
		)
		return
	}
	log.Info("previous run",
		"run_id", r.ID,
		"finished_at", *r.FinishedAt,
		"cycles", r.Stats.Cycles,
		"published", r.Stats.Published,
		"recoveries", r.Stats.Recoveries,
		"connect_attempts", r.Stats.ConnectAttempts,
	)
}
