package bus

import (
	"fmt"
	"math"
	"sync"
)

// AHT20 wire constants understood by the fake.
const (
	fakeCmdSoftReset = 0xBA
	fakeCmdCalibrate = 0xBE
	fakeCmdTrigger   = 0xAC

	fakeStatusBase       = 0x10
	fakeStatusBusy       = 0x80
	fakeStatusCalibrated = 0x08

	rawFullScale = 1 << 20
	rawMax       = rawFullScale - 1
)

// Op names a transaction kind for fault injection.
type Op string

// Transaction kinds.
const (
	OpWrite     Op = "write"
	OpRead      Op = "read"
	OpWriteByte Op = "write_byte"
	OpReadByte  Op = "read_byte"
)

// Fake is an in-memory AHT20 on a two-wire bus.
//
// It answers the soft-reset, calibrate and trigger commands, reports busy for
// a configurable number of status reads after each command, and returns a
// six-byte measurement frame (status byte followed by five data bytes) built
// from the configured environment. Faults can be injected per operation.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	addr       uint16
	calibrated bool
	busyReads  int
	busyPolls  int
	stuckBusy  bool
	absent     bool
	closed     bool
	closeCount int

	temperature float64
	humidity    float64
	frame       []byte

	failures     map[Op]error
	shortWrite   bool
	transactions int
	writes       [][]byte
}

// NewFake returns a powered, uncalibrated fake device at addr reporting
// 21.5 °C and 45 %RH. Each command keeps the device busy for one status read.
func NewFake(addr uint16) *Fake {
	return &Fake{
		addr:        addr,
		busyPolls:   1,
		temperature: 21.5,
		humidity:    45,
		failures:    make(map[Op]error),
	}
}

// SetEnvironment sets the values encoded in subsequent measurement frames.
func (f *Fake) SetEnvironment(temperatureC, humidityPct float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temperature = temperatureC
	f.humidity = humidityPct
	f.frame = nil
}

// SetFrame overrides the measurement response with raw bytes. The slice is
// returned as-is by the next measurement reads.
func (f *Fake) SetFrame(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = append([]byte(nil), frame...)
}

// SetBusyPolls sets how many status reads report busy after each command.
func (f *Fake) SetBusyPolls(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busyPolls = n
}

// SetStuckBusy makes every status read report busy.
func (f *Fake) SetStuckBusy(stuck bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stuckBusy = stuck
}

// SetAbsent makes every transaction fail with ErrNoDevice.
func (f *Fake) SetAbsent(absent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.absent = absent
}

// SetShortWrite makes block writes acknowledge one byte fewer than sent.
func (f *Fake) SetShortWrite(short bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shortWrite = short
}

// FailOn makes every transaction of kind op fail with err. A nil err clears it.
func (f *Fake) FailOn(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Transactions returns the number of transactions attempted so far.
func (f *Fake) Transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transactions
}

// Writes returns a copy of every command written, in order.
func (f *Fake) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	for i, w := range f.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Calibrated reports whether the calibrate command has been received.
func (f *Fake) Calibrated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calibrated
}

// CloseCount returns how many times Close released the handle.
func (f *Fake) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// begin counts a transaction and returns the injected error for op, if any.
// Caller must hold f.mu.
func (f *Fake) begin(op Op) error {
	f.transactions++
	if f.closed {
		return ErrClosed
	}
	if f.absent {
		return fmt.Errorf("%w 0x%02X", ErrNoDevice, f.addr)
	}
	return f.failures[op]
}

// WriteBytes implements Device.
func (f *Fake) WriteBytes(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpWrite); err != nil {
		return 0, err
	}
	f.command(p)
	if f.shortWrite && len(p) > 0 {
		return len(p) - 1, nil
	}
	return len(p), nil
}

// ReadBytes implements Device.
func (f *Fake) ReadBytes(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpRead); err != nil {
		return nil, err
	}

	frame := f.frame
	if frame == nil {
		frame = f.encodeFrame()
	}
	out := make([]byte, n)
	copy(out, frame)
	return out, nil
}

// WriteRegisterByte implements Device.
func (f *Fake) WriteRegisterByte(b byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpWriteByte); err != nil {
		return err
	}
	f.command([]byte{b})
	return nil
}

// ReadRegisterByte implements Device.
func (f *Fake) ReadRegisterByte() (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpReadByte); err != nil {
		return 0, err
	}
	return f.status(true), nil
}

// Addr implements Device.
func (f *Fake) Addr() uint16 { return f.addr }

// String describes the handle for logs.
func (f *Fake) String() string {
	return fmt.Sprintf("fake@0x%02X", f.addr)
}

// Close implements Device.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.closeCount++
	return nil
}

// command applies a written command. Caller must hold f.mu.
func (f *Fake) command(p []byte) {
	f.writes = append(f.writes, append([]byte(nil), p...))
	if len(p) == 0 {
		return
	}
	switch p[0] {
	case fakeCmdSoftReset:
		f.busyReads = 0
	case fakeCmdCalibrate:
		f.calibrated = true
		f.busyReads = f.busyPolls
	case fakeCmdTrigger:
		f.busyReads = f.busyPolls
	}
}

// status returns the status byte, consuming one busy read when consume is
// set. Caller must hold f.mu.
func (f *Fake) status(consume bool) byte {
	st := byte(fakeStatusBase)
	if f.calibrated {
		st |= fakeStatusCalibrated
	}
	if f.stuckBusy || f.busyReads > 0 {
		st |= fakeStatusBusy
		if consume && f.busyReads > 0 {
			f.busyReads--
		}
	}
	return st
}

// encodeFrame builds status + 5 data bytes for the configured environment.
// Caller must hold f.mu.
func (f *Fake) encodeFrame() []byte {
	rawH := toRaw(f.humidity / 100)
	rawT := toRaw((f.temperature + 50) / 200)

	return []byte{
		f.status(false),
		byte(rawH >> 12),
		byte(rawH >> 4),
		byte(rawH<<4) | byte(rawT>>16)&0x0F,
		byte(rawT >> 8),
		byte(rawT),
	}
}

// toRaw converts a fraction of full scale to a 20-bit code.
func toRaw(fraction float64) uint32 {
	v := math.Round(fraction * rawFullScale)
	switch {
	case v < 0:
		return 0
	case v > rawMax:
		return rawMax
	}
	return uint32(v)
}
