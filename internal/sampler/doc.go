// Package sampler drives acquisition and publishing on a fixed interval.
//
// A Loop owns the sensor driver and the publisher and touches both from a
// single goroutine. Each iteration:
//
//  1. pumps publisher events (bounded wait)
//  2. runs one acquisition cycle when the interval has elapsed
//  3. starts a reconnect when the publisher is Disconnected or Errored
//
// A cycle publishes at most one reading. Failures are logged and counted;
// the loop never retries a cycle before the next interval and never
// buffers unsent readings.
//
// Usage:
//
//	loop, err := sampler.New(sampler.Options{
//	    Sensor:    driver,
//	    Device:    dev,
//	    Publisher: client,
//	    Topic:     topics.SensorReading(),
//	    Interval:  cfg.SampleInterval(),
//	})
//	if err != nil {
//	    return err
//	}
//	stats := loop.Run(coordinator)
package sampler
