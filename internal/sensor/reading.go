// Package sensor holds the value types shared by the acquisition driver and
// the sampling loop: the decoded reading and the static calibration offsets.
package sensor

import (
	"math"

	"periph.io/x/conn/v3/physic"
)

// Humidity bounds in percent relative humidity.
const (
	MinHumidity = 0.0
	MaxHumidity = 100.0
)

// Reading is one decoded acquisition.
//
// A Reading is produced once per successful cycle and is never mutated
// after creation; offsets produce a new value. Readings with Valid == false
// carry no meaningful payload and must never be published.
type Reading struct {
	TemperatureCelsius float64
	HumidityPercent    float64
	TimestampMillis    uint64
	Valid              bool
}

// CheckValid reports whether r satisfies the validity invariant: Valid is
// set, both values are finite and humidity lies within [0, 100].
func (r Reading) CheckValid() bool {
	if !r.Valid {
		return false
	}
	if math.IsNaN(r.TemperatureCelsius) || math.IsInf(r.TemperatureCelsius, 0) {
		return false
	}
	if math.IsNaN(r.HumidityPercent) || math.IsInf(r.HumidityPercent, 0) {
		return false
	}
	return r.HumidityPercent >= MinHumidity && r.HumidityPercent <= MaxHumidity
}

// Env converts the reading to periph's unit-typed environment value.
// Useful for human-readable logs ("21.5°C", "40.0%rH").
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(r.TemperatureCelsius*float64(physic.Kelvin)),
		Humidity:    physic.RelativeHumidity(r.HumidityPercent * float64(physic.PercentRH)),
	}
}

// CalibrationOffsets are additive corrections from static configuration.
type CalibrationOffsets struct {
	Temperature float64
	Humidity    float64
}

// Apply returns a copy of r with the offsets added. Humidity is clamped back
// into [0, 100] so an offset can never produce an out-of-range valid reading.
func (o CalibrationOffsets) Apply(r Reading) Reading {
	r.TemperatureCelsius += o.Temperature
	r.HumidityPercent = Clamp(r.HumidityPercent+o.Humidity, MinHumidity, MaxHumidity)
	return r
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
