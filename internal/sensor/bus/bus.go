// Package bus provides the byte-level two-wire transport used by sensor
// drivers.
//
// A Device is an addressed handle on the bus: every call is a single
// transaction with one device and carries no framing beyond byte counts.
// Two implementations exist:
//
//   - I2C: a Linux I²C adapter opened through periph.io
//   - Fake: an in-memory AHT20 model used for simulation mode and tests
//
// Devices are not safe for concurrent use; the sampling loop is the only
// caller.
package bus

import "errors"

// Device is one addressed device on a two-wire bus.
type Device interface {
	// WriteBytes writes p in a single write transaction and returns the
	// number of bytes the device acknowledged.
	WriteBytes(p []byte) (int, error)

	// ReadBytes performs a single read transaction of exactly n bytes.
	ReadBytes(n int) ([]byte, error)

	// WriteRegisterByte writes a single command byte.
	WriteRegisterByte(b byte) error

	// ReadRegisterByte reads a single byte.
	ReadRegisterByte() (byte, error)

	// Addr returns the 7-bit device address.
	Addr() uint16

	// Close releases the handle. Calling Close more than once is safe.
	Close() error
}

var (
	// ErrClosed is returned for transactions on a closed handle.
	ErrClosed = errors.New("bus: device handle closed")

	// ErrInvalidAddress is returned when opening an address outside 1..0x7F.
	ErrInvalidAddress = errors.New("bus: invalid 7-bit address")

	// ErrNoDevice is returned by the fake when no device answers.
	ErrNoDevice = errors.New("bus: no device at address")
)

// MaxAddress is the highest 7-bit device address.
const MaxAddress = 0x7F

func validAddress(addr uint16) bool {
	return addr > 0 && addr <= MaxAddress
}
