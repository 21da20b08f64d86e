package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// MeasurementClimate is the measurement name for reading points.
const MeasurementClimate = "climate"

// WriteReading queues one reading as a point stamped with its acquisition
// time. Invalid readings are ignored. The write is non-blocking; failures,
// including ErrNotConnected after Close, arrive through the SetOnError
// callback.
func (c *Client) WriteReading(r sensor.Reading) {
	if !r.CheckValid() {
		return
	}

	c.mu.RLock()
	connected := c.connected
	tags := c.tags
	callback := c.onError
	c.mu.RUnlock()

	if !connected {
		if callback != nil {
			callback(fmt.Errorf("%w: reading at %d dropped", ErrNotConnected, r.TimestampMillis))
		}
		return
	}

	c.writeAPI.WritePoint(readingPoint(tags, r))
}

// readingPoint builds the point for one reading.
func readingPoint(tags map[string]string, r sensor.Reading) *write.Point {
	return write.NewPoint(
		MeasurementClimate,
		tags,
		map[string]interface{}{
			"temperature_c": r.TemperatureCelsius,
			"humidity_pct":  r.HumidityPercent,
		},
		time.UnixMilli(int64(r.TimestampMillis)), //nolint:gosec // Millisecond timestamps fit in int64
	)
}
