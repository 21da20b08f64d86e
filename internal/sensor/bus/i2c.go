package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2C is a Device backed by a periph.io I²C bus.
type I2C struct {
	bus    i2c.BusCloser
	dev    *i2c.Dev
	closed bool
}

// OpenI2C initialises the periph host drivers and opens the named bus
// (e.g. "1" or "/dev/i2c-1"; empty selects the first available bus) for the
// device at addr.
//
// Parameters:
//   - name: periph bus name
//   - addr: 7-bit device address
//
// Returns:
//   - *I2C: Open device handle
//   - error: If host init or bus open fails, or addr is invalid
func OpenI2C(name string, addr uint16) (*I2C, error) {
	if !validAddress(addr) {
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidAddress, addr)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", name, err)
	}

	return &I2C{
		bus: b,
		dev: &i2c.Dev{Bus: b, Addr: addr},
	}, nil
}

// WriteBytes implements Device.
func (d *I2C) WriteBytes(p []byte) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	return d.dev.Write(p)
}

// ReadBytes implements Device.
func (d *I2C) ReadBytes(n int) ([]byte, error) {
	if d.closed {
		return nil, ErrClosed
	}
	buf := make([]byte, n)
	if err := d.dev.Tx(nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRegisterByte implements Device.
func (d *I2C) WriteRegisterByte(b byte) error {
	if d.closed {
		return ErrClosed
	}
	return d.dev.Tx([]byte{b}, nil)
}

// ReadRegisterByte implements Device.
func (d *I2C) ReadRegisterByte() (byte, error) {
	if d.closed {
		return 0, ErrClosed
	}
	var buf [1]byte
	if err := d.dev.Tx(nil, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Addr implements Device.
func (d *I2C) Addr() uint16 { return d.dev.Addr }

// String describes the handle for logs.
func (d *I2C) String() string {
	return fmt.Sprintf("i2c(%s)@0x%02X", d.bus, d.dev.Addr)
}

// Close implements Device.
func (d *I2C) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.bus.Close()
}
