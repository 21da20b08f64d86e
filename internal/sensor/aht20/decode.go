package aht20

import (
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

const (
	// FrameLen is the measurement read size: status byte plus five data bytes.
	FrameLen = 6

	// RawFullScale is 2^20, the divisor for both channels.
	RawFullScale = 1 << 20

	// RawMax is the largest valid 20-bit code.
	RawMax = RawFullScale - 1
)

// Raw holds the undecoded 20-bit channel codes of one frame.
type Raw struct {
	Status      byte
	Humidity    uint32
	Temperature uint32
}

// ParseFrame extracts the status byte and both 20-bit codes from a
// measurement frame.
//
// Returns:
//   - Raw: status and raw codes
//   - error: ErrDecode if the frame is not FrameLen bytes long
func ParseFrame(frame []byte) (Raw, error) {
	if len(frame) != FrameLen {
		return Raw{}, fmt.Errorf("%w: frame length %d, want %d", ErrDecode, len(frame), FrameLen)
	}

	b1, b2, b3, b4, b5 := uint32(frame[1]), uint32(frame[2]), uint32(frame[3]), uint32(frame[4]), uint32(frame[5])

	return Raw{
		Status:      frame[0],
		Humidity:    (b1 << 12) | (b2 << 4) | (b3 >> 4),
		Temperature: ((b3 & 0x0F) << 16) | (b4 << 8) | b5,
	}, nil
}

// Validate rejects codes wider than 20 bits. The byte packing cannot
// produce them, so a failure here means the Raw value was built elsewhere
// or corrupted.
func (r Raw) Validate() error {
	if r.Humidity > RawMax {
		return fmt.Errorf("%w: humidity code 0x%X exceeds 20 bits", ErrDecode, r.Humidity)
	}
	if r.Temperature > RawMax {
		return fmt.Errorf("%w: temperature code 0x%X exceeds 20 bits", ErrDecode, r.Temperature)
	}
	return nil
}

// DecodeTemperature converts a raw temperature code to degrees Celsius.
func DecodeTemperature(raw uint32) float64 {
	return float64(raw)/RawFullScale*200 - 50
}

// DecodeHumidity converts a raw humidity code to percent relative humidity,
// clamped to [0, 100].
func DecodeHumidity(raw uint32) float64 {
	return sensor.Clamp(float64(raw)/RawFullScale*100, sensor.MinHumidity, sensor.MaxHumidity)
}
