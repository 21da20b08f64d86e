package influxdb

import "errors"

// Sentinel errors returned by Connect or delivered to the SetOnError callback.
var (
	// ErrNotConnected reports a reading dropped because the client is closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed ping or an unhealthy server.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps an async batch write failure.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled is returned by Connect when the mirror is switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
