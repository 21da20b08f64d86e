package aht20

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-4

func TestParseFrame(t *testing.T) {
	raw, err := ParseFrame([]byte{0x18, 0x8F, 0x35, 0x12, 0x34, 0x56})
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}

	if raw.Status != 0x18 {
		t.Errorf("Status = 0x%02X, want 0x18", raw.Status)
	}
	if raw.Humidity != 0x8F351 {
		t.Errorf("Humidity = 0x%05X, want 0x8F351", raw.Humidity)
	}
	if raw.Temperature != 0x23456 {
		t.Errorf("Temperature = 0x%05X, want 0x23456", raw.Temperature)
	}
}

func TestParseFrameWrongLength(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"five bytes", []byte{0, 1, 2, 3, 4}},
		{"seven bytes", []byte{0, 1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.frame)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("ParseFrame() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestRawValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     Raw
		wantErr bool
	}{
		{"zero", Raw{}, false},
		{"max", Raw{Humidity: RawMax, Temperature: RawMax}, false},
		{"humidity too wide", Raw{Humidity: RawMax + 1}, true},
		{"temperature too wide", Raw{Temperature: 1 << 24}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.raw.Validate()
			if tt.wantErr && !errors.Is(err, ErrDecode) {
				t.Errorf("Validate() error = %v, want ErrDecode", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestDecodeKnownVector(t *testing.T) {
	raw, err := ParseFrame([]byte{0x18, 0x8F, 0x35, 0x12, 0x34, 0x56})
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}

	// 586577 / 2^20 * 100
	if got := DecodeHumidity(raw.Humidity); math.Abs(got-55.94039) > epsilon {
		t.Errorf("DecodeHumidity() = %f, want ~55.94039", got)
	}
	// 144470 / 2^20 * 200 - 50
	if got := DecodeTemperature(raw.Temperature); math.Abs(got-(-22.444534)) > epsilon {
		t.Errorf("DecodeTemperature() = %f, want ~-22.444534", got)
	}
}

func TestDecodeEndpoints(t *testing.T) {
	if got := DecodeTemperature(0); got != -50 {
		t.Errorf("DecodeTemperature(0) = %f, want -50", got)
	}
	if got := DecodeTemperature(RawMax); got >= 150 || got < 149.999 {
		t.Errorf("DecodeTemperature(RawMax) = %f, want just below 150", got)
	}
	if got := DecodeHumidity(0); got != 0 {
		t.Errorf("DecodeHumidity(0) = %f, want 0", got)
	}
	if got := DecodeHumidity(RawMax); got > 100 || got < 99.999 {
		t.Errorf("DecodeHumidity(RawMax) = %f, want just below 100", got)
	}
}

func TestDecodeMonotonic(t *testing.T) {
	prevT := DecodeTemperature(0)
	prevH := DecodeHumidity(0)

	for raw := uint32(1); raw <= RawMax; raw += 997 {
		tc := DecodeTemperature(raw)
		h := DecodeHumidity(raw)
		if tc < prevT {
			t.Fatalf("DecodeTemperature(0x%05X) = %f < previous %f", raw, tc, prevT)
		}
		if h < prevH {
			t.Fatalf("DecodeHumidity(0x%05X) = %f < previous %f", raw, h, prevH)
		}
		if h < 0 || h > 100 {
			t.Fatalf("DecodeHumidity(0x%05X) = %f out of range", raw, h)
		}
		prevT, prevH = tc, h
	}
}
