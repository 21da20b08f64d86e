package sampler

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/clock"
	"github.com/nerrad567/gray-logic-climate/internal/publish"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/aht20"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/bus"
)

const (
	// DefaultQuantum is the sleep between loop iterations.
	DefaultQuantum = 100 * time.Millisecond

	// DefaultPumpTimeout bounds the wait for publisher events per iteration.
	DefaultPumpTimeout = 100 * time.Millisecond
)

// Sensor is the acquisition side of the loop. *aht20.Driver implements it.
type Sensor interface {
	State() aht20.State
	Initialize(dev bus.Device) error
	ReadMeasurement() (sensor.Reading, error)
	Shutdown()
}

// Sink receives every reading that was published.
type Sink interface {
	WriteReading(r sensor.Reading)
}

// Recorder stores the outcome of every cycle.
type Recorder interface {
	RecordTick(t Tick) error
}

// StopSignal reports whether the loop should exit.
type StopSignal interface {
	Stopped() bool
}

// Logger interface for loop diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Loop. Sensor, Device, Publisher, Topic and Interval
// are required.
type Options struct {
	Sensor    Sensor
	Device    bus.Device
	Publisher publish.Publisher

	Clock       clock.Clock
	Interval    time.Duration
	Quantum     time.Duration
	PumpTimeout time.Duration

	Topic   string
	QoS     byte
	Retain  bool
	Offsets sensor.CalibrationOffsets

	Logger   Logger
	Sink     Sink
	Recorder Recorder
}

// Loop is the sampling/publish scheduler.
//
// Thread Safety:
//   - Step, Run and Stats must be called from one goroutine. Only the
//     StopSignal is read across goroutines.
type Loop struct {
	opts   Options
	clock  clock.Clock
	logger Logger

	attempted   bool
	lastAttempt time.Time
	stats       Stats

	releaseOnce sync.Once
}

// New validates opts and returns a Loop that has not yet run a cycle.
//
// Parameters:
//   - opts: Collaborators and timing; zero Quantum, PumpTimeout and Clock
//     take their defaults
//
// Returns:
//   - *Loop: Ready to Step or Run
//   - error: ErrInvalidOptions listing every missing field
func New(opts Options) (*Loop, error) {
	var missing []string
	if opts.Sensor == nil {
		missing = append(missing, "sensor")
	}
	if opts.Device == nil {
		missing = append(missing, "device")
	}
	if opts.Publisher == nil {
		missing = append(missing, "publisher")
	}
	if opts.Topic == "" {
		missing = append(missing, "topic")
	}
	if opts.Interval <= 0 {
		missing = append(missing, "interval")
	}
	if opts.QoS > 2 {
		missing = append(missing, "qos (0-2)")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, missing)
	}

	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Quantum <= 0 {
		opts.Quantum = DefaultQuantum
	}
	if opts.PumpTimeout <= 0 {
		opts.PumpTimeout = DefaultPumpTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Loop{opts: opts, clock: opts.Clock, logger: logger}, nil
}

// Step runs one loop iteration: pump, maybe cycle, maybe reconnect.
func (l *Loop) Step() {
	l.stats.Iterations++
	pub := l.opts.Publisher

	if err := pub.PumpEvents(l.opts.PumpTimeout); err != nil {
		l.logger.Warn("publisher event pump failed", "error", err)
	}

	now := l.clock.Now()
	if !l.attempted || now.Sub(l.lastAttempt) >= l.opts.Interval {
		l.attempted = true
		l.lastAttempt = now
		l.cycle(now)
	}

	if state := pub.State(); state.NeedsConnect() {
		l.stats.ConnectAttempts++
		l.logger.Debug("starting broker connect", "state", state.String())
		if err := pub.Connect(); err != nil {
			l.logger.Warn("broker connect failed", "error", err)
		}
	}
}

// cycle performs one acquisition and, on success, one publish.
func (l *Loop) cycle(now time.Time) {
	tick := Tick{At: now}
	defer func() {
		l.stats.count(tick.Outcome)
		l.record(tick)
	}()

	if state := l.opts.Sensor.State(); state == aht20.StateFaulted || state == aht20.StateUninitialized {
		if err := l.opts.Sensor.Initialize(l.opts.Device); err != nil {
			tick.Outcome, tick.Err = OutcomeInitFailed, err
			l.logger.Error("sensor recovery failed", "op", "initialize", "from", state.String(), "error", err)
			return
		}
		tick.Outcome = OutcomeRecovered
		l.logger.Info("sensor recovered", "from", state.String())
		return
	}

	raw, err := l.opts.Sensor.ReadMeasurement()
	if err != nil {
		tick.Outcome, tick.Err = OutcomeReadFailed, err
		l.logger.Warn("sensor read failed", "op", "read_measurement", "error", err)
		return
	}

	reading := l.opts.Offsets.Apply(raw)
	tick.Reading = reading

	payload, err := EncodePayload(reading)
	if err != nil {
		tick.Outcome, tick.Err = OutcomeReadFailed, err
		l.logger.Warn("reading rejected", "op", "encode", "error", err)
		return
	}

	if err := l.opts.Publisher.Publish(l.opts.Topic, payload, l.opts.QoS, l.opts.Retain); err != nil {
		tick.Outcome, tick.Err = OutcomePublishFailed, err
		l.logger.Warn("publish failed", "op", "publish", "topic", l.opts.Topic,
			"state", l.opts.Publisher.State().String(), "error", err)
		return
	}

	tick.Outcome = OutcomePublished
	env := reading.Env()
	l.logger.Debug("reading published",
		"temperature", env.Temperature.String(),
		"humidity", env.Humidity.String(),
		"ts", reading.TimestampMillis,
	)
	if l.opts.Sink != nil {
		l.opts.Sink.WriteReading(reading)
	}
}

func (l *Loop) record(t Tick) {
	if l.opts.Recorder == nil {
		return
	}
	if err := l.opts.Recorder.RecordTick(t); err != nil {
		l.logger.Warn("journal write failed", "error", err)
	}
}

// Run steps until stop reports true, sleeping Quantum between iterations,
// then releases the publisher and the sensor. The stop flag is checked
// before every iteration and again before each sleep.
//
// Returns:
//   - Stats: Counters at exit
func (l *Loop) Run(stop StopSignal) Stats {
	defer l.release()

	for !stop.Stopped() {
		l.Step()
		if stop.Stopped() {
			break
		}
		l.clock.Sleep(l.opts.Quantum)
	}
	return l.stats
}

// release disconnects and closes the publisher, then shuts the sensor
// down. It runs at most once.
func (l *Loop) release() {
	l.releaseOnce.Do(func() {
		l.opts.Publisher.Disconnect()
		if err := l.opts.Publisher.Close(); err != nil {
			l.logger.Warn("closing publisher", "error", err)
		}
		l.opts.Sensor.Shutdown()
	})
}

// Stats returns a copy of the counters.
func (l *Loop) Stats() Stats {
	return l.stats
}

// LastAttempt returns the start time of the most recent cycle and whether
// any cycle has run.
func (l *Loop) LastAttempt() (time.Time, bool) {
	return l.lastAttempt, l.attempted
}
