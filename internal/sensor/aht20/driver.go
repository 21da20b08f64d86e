package aht20

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/clock"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
	"github.com/nerrad567/gray-logic-climate/internal/sensor/bus"
)

// DefaultAddress is the fixed 7-bit address of the AHT20.
const DefaultAddress = 0x38

// Commands and status bits.
const (
	cmdSoftReset = 0xBA
	cmdCalibrate = 0xBE
	cmdTrigger   = 0xAC

	calibrateParam1 = 0x08
	calibrateParam2 = 0x00
	triggerParam1   = 0x33
	triggerParam2   = 0x00

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// State is the driver lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateMeasuring
	StateFaulted
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateMeasuring:
		return "measuring"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options controls driver timing. Zero fields take the defaults.
type Options struct {
	// PowerUpDelay is waited before the first command. Default 40ms.
	PowerUpDelay time.Duration

	// ResetDelay is waited after a soft reset. Default 20ms.
	ResetDelay time.Duration

	// MeasureDelay is waited after a trigger before polling. Default 80ms.
	MeasureDelay time.Duration

	// PollInterval is the delay between status reads while busy. Default 10ms.
	PollInterval time.Duration

	// MaxPolls bounds the busy-poll. Default 10.
	MaxPolls int

	// Clock supplies time and sleeps. Default clock.Real{}.
	Clock clock.Clock
}

// DefaultOptions returns the datasheet timings.
func DefaultOptions() Options {
	return Options{
		PowerUpDelay: 40 * time.Millisecond,
		ResetDelay:   20 * time.Millisecond,
		MeasureDelay: 80 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		MaxPolls:     10,
		Clock:        clock.Real{},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PowerUpDelay <= 0 {
		o.PowerUpDelay = d.PowerUpDelay
	}
	if o.ResetDelay <= 0 {
		o.ResetDelay = d.ResetDelay
	}
	if o.MeasureDelay <= 0 {
		o.MeasureDelay = d.MeasureDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = d.MaxPolls
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	return o
}

// Logger is the optional debug sink for raw frames.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Driver owns the command/status protocol for one AHT20.
type Driver struct {
	opts   Options
	dev    bus.Device
	state  State
	logger Logger
}

// New creates an Uninitialized driver. It does not touch the bus.
func New(opts Options) *Driver {
	return &Driver{
		opts:   opts.withDefaults(),
		state:  StateUninitialized,
		logger: noopLogger{},
	}
}

// SetLogger sets a logger for raw frame tracing.
func (d *Driver) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Initialize binds the driver to dev and runs the power-up, reset and
// calibrate sequence.
//
// It performs, in order:
//  1. Power-up delay
//  2. Soft-reset command
//  3. Reset delay
//  4. Calibrate command with its two parameter bytes
//  5. Busy-poll until the busy bit clears
//
// May be called again after a failure or from Faulted. If a different
// device was bound before, it is closed first. A nil dev leaves the current
// binding alone and faults the driver.
//
// Returns:
//   - error: ErrTimeout if busy never clears, ErrBus on any failed transaction or a nil dev
func (d *Driver) Initialize(dev bus.Device) error {
	if dev == nil {
		d.state = StateFaulted
		return fmt.Errorf("%w: no device", ErrBus)
	}
	if d.dev != nil && d.dev != dev {
		_ = d.dev.Close() //nolint:errcheck // Replacing a stale handle
	}
	d.dev = dev

	if err := d.initSequence(); err != nil {
		d.state = StateFaulted
		return err
	}

	d.state = StateReady
	return nil
}

func (d *Driver) initSequence() error {
	d.opts.Clock.Sleep(d.opts.PowerUpDelay)

	if err := d.dev.WriteRegisterByte(cmdSoftReset); err != nil {
		return fmt.Errorf("%w: soft reset: %w", ErrBus, err)
	}
	d.opts.Clock.Sleep(d.opts.ResetDelay)

	if err := d.writeCommand(cmdCalibrate, calibrateParam1, calibrateParam2); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	if err := d.waitNotBusy(); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	return nil
}

// ReadMeasurement triggers one measurement and decodes the result.
//
// It performs zero bus transactions unless the driver is Ready. The
// measurement frame is six bytes with the status byte first.
//
// Returns:
//   - sensor.Reading: Valid reading stamped with the acquisition time
//   - error: ErrNotInitialized, ErrBus, ErrTimeout or ErrDecode
func (d *Driver) ReadMeasurement() (sensor.Reading, error) {
	if d.state != StateReady || d.dev == nil {
		return sensor.Reading{}, ErrNotInitialized
	}

	d.state = StateMeasuring
	reading, err := d.measure()
	switch {
	case err == nil:
		d.state = StateReady
	case errors.Is(err, ErrDecode):
		d.state = StateFaulted
	default:
		d.state = StateReady
	}
	return reading, err
}

func (d *Driver) measure() (sensor.Reading, error) {
	if err := d.writeCommand(cmdTrigger, triggerParam1, triggerParam2); err != nil {
		return sensor.Reading{}, fmt.Errorf("trigger: %w", err)
	}
	d.opts.Clock.Sleep(d.opts.MeasureDelay)

	if err := d.waitNotBusy(); err != nil {
		return sensor.Reading{}, fmt.Errorf("measure: %w", err)
	}

	frame, err := d.dev.ReadBytes(FrameLen)
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("%w: read frame: %w", ErrBus, err)
	}
	if len(frame) != FrameLen {
		return sensor.Reading{}, fmt.Errorf("%w: short read %d of %d bytes", ErrBus, len(frame), FrameLen)
	}

	raw, err := ParseFrame(frame)
	if err != nil {
		return sensor.Reading{}, err
	}
	if err := raw.Validate(); err != nil {
		return sensor.Reading{}, err
	}

	d.logger.Debug("aht20 frame",
		"bytes", fmt.Sprintf("% X", frame),
		"raw_humidity", fmt.Sprintf("0x%05X", raw.Humidity),
		"raw_temperature", fmt.Sprintf("0x%05X", raw.Temperature),
	)

	reading := sensor.Reading{
		TemperatureCelsius: DecodeTemperature(raw.Temperature),
		HumidityPercent:    DecodeHumidity(raw.Humidity),
		TimestampMillis:    uint64(d.opts.Clock.Now().UnixMilli()), //nolint:gosec // Wall clock is after 1970
		Valid:              true,
	}
	if !reading.CheckValid() {
		return sensor.Reading{}, fmt.Errorf("%w: decoded values out of range", ErrDecode)
	}
	return reading, nil
}

// IsBusy reads the status byte once and tests the busy bit.
func (d *Driver) IsBusy() (bool, error) {
	st, err := d.status()
	if err != nil {
		return false, err
	}
	return st&statusBusy != 0, nil
}

// IsCalibrated reads the status byte once and tests the calibrated bit.
func (d *Driver) IsCalibrated() (bool, error) {
	st, err := d.status()
	if err != nil {
		return false, err
	}
	return st&statusCalibrated != 0, nil
}

// Reset sends a soft reset and waits the reset delay. The lifecycle state
// is not changed.
func (d *Driver) Reset() error {
	if d.dev == nil {
		return ErrNotInitialized
	}
	if err := d.dev.WriteRegisterByte(cmdSoftReset); err != nil {
		return fmt.Errorf("%w: soft reset: %w", ErrBus, err)
	}
	d.opts.Clock.Sleep(d.opts.ResetDelay)
	return nil
}

// Shutdown releases the bus handle and returns to Uninitialized.
// Calling Shutdown more than once is safe.
func (d *Driver) Shutdown() {
	if d.dev != nil {
		_ = d.dev.Close() //nolint:errcheck // Nothing useful to do on release failure
		d.dev = nil
	}
	d.state = StateUninitialized
}

func (d *Driver) status() (byte, error) {
	if d.dev == nil {
		return 0, ErrNotInitialized
	}
	st, err := d.dev.ReadRegisterByte()
	if err != nil {
		return 0, fmt.Errorf("%w: read status: %w", ErrBus, err)
	}
	return st, nil
}

// writeCommand writes a three-byte command and treats a short write as a
// bus failure.
func (d *Driver) writeCommand(cmd, p1, p2 byte) error {
	buf := []byte{cmd, p1, p2}
	n, err := d.dev.WriteBytes(buf)
	if err != nil {
		return fmt.Errorf("%w: write 0x%02X: %w", ErrBus, cmd, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: write 0x%02X: short write %d of %d bytes", ErrBus, cmd, n, len(buf))
	}
	return nil
}

// waitNotBusy polls the status byte until the busy bit clears, sleeping
// PollInterval between reads, for at most MaxPolls reads.
func (d *Driver) waitNotBusy() error {
	for i := 0; i < d.opts.MaxPolls; i++ {
		busy, err := d.IsBusy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		d.opts.Clock.Sleep(d.opts.PollInterval)
	}
	return fmt.Errorf("%w after %d polls", ErrTimeout, d.opts.MaxPolls)
}
