package sensor

import (
	"math"
	"strings"
	"testing"
)

func TestCheckValid(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		want    bool
	}{
		{"valid", Reading{TemperatureCelsius: 21.5, HumidityPercent: 40, Valid: true}, true},
		{"flag unset", Reading{TemperatureCelsius: 21.5, HumidityPercent: 40}, false},
		{"nan temperature", Reading{TemperatureCelsius: math.NaN(), HumidityPercent: 40, Valid: true}, false},
		{"inf humidity", Reading{TemperatureCelsius: 20, HumidityPercent: math.Inf(1), Valid: true}, false},
		{"humidity above range", Reading{TemperatureCelsius: 20, HumidityPercent: 100.01, Valid: true}, false},
		{"humidity below range", Reading{TemperatureCelsius: 20, HumidityPercent: -0.01, Valid: true}, false},
		{"humidity bounds", Reading{TemperatureCelsius: -50, HumidityPercent: 100, Valid: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reading.CheckValid(); got != tt.want {
				t.Errorf("CheckValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalibrationOffsetsApply(t *testing.T) {
	r := Reading{TemperatureCelsius: 20, HumidityPercent: 50, TimestampMillis: 1234, Valid: true}

	got := CalibrationOffsets{Temperature: -1.5, Humidity: 2.25}.Apply(r)
	if got.TemperatureCelsius != 18.5 {
		t.Errorf("TemperatureCelsius = %v, want 18.5", got.TemperatureCelsius)
	}
	if got.HumidityPercent != 52.25 {
		t.Errorf("HumidityPercent = %v, want 52.25", got.HumidityPercent)
	}
	if got.TimestampMillis != 1234 || !got.Valid {
		t.Errorf("Apply() changed timestamp or validity: %+v", got)
	}
	if r.TemperatureCelsius != 20 {
		t.Error("Apply() mutated the original reading")
	}
}

func TestCalibrationOffsetsApplyClampsHumidity(t *testing.T) {
	high := CalibrationOffsets{Humidity: 10}.Apply(Reading{HumidityPercent: 95, Valid: true})
	if high.HumidityPercent != MaxHumidity {
		t.Errorf("HumidityPercent = %v, want %v", high.HumidityPercent, MaxHumidity)
	}

	low := CalibrationOffsets{Humidity: -10}.Apply(Reading{HumidityPercent: 5, Valid: true})
	if low.HumidityPercent != MinHumidity {
		t.Errorf("HumidityPercent = %v, want %v", low.HumidityPercent, MinHumidity)
	}
}

func TestEnv(t *testing.T) {
	env := Reading{TemperatureCelsius: 25, HumidityPercent: 50, Valid: true}.Env()

	if !strings.HasPrefix(env.Temperature.String(), "25") {
		t.Errorf("Temperature = %s, want 25°C", env.Temperature)
	}
	if !strings.HasPrefix(env.Humidity.String(), "50") {
		t.Errorf("Humidity = %s, want 50%%rH", env.Humidity)
	}
}
