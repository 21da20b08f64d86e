package sampler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// fixed2 marshals as a JSON number with exactly two decimals.
type fixed2 float64

func (f fixed2) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'f', 2, 64), nil
}

type payload struct {
	TemperatureC fixed2 `json:"temperature_c"`
	HumidityPct  fixed2 `json:"humidity_pct"`
	Timestamp    uint64 `json:"ts"`
}

// EncodePayload renders r as
//
//	{"temperature_c":21.50,"humidity_pct":40.25,"ts":1700000000000}
//
// Readings that fail CheckValid are rejected with ErrInvalidReading.
func EncodePayload(r sensor.Reading) ([]byte, error) {
	if !r.CheckValid() {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidReading, r)
	}
	return json.Marshal(payload{
		TemperatureC: fixed2(r.TemperatureCelsius),
		HumidityPct:  fixed2(r.HumidityPercent),
		Timestamp:    r.TimestampMillis,
	})
}
