// Package kafka publishes climate readings to Kafka as an alternative to
// MQTT (publisher.transport: kafka).
//
// Kafka has no session to hold open, so "connected" means a broker answered
// a dial check. Connect runs the check on a goroutine and reports the result
// through the same queued-event model as the MQTT client: PumpEvents, called
// from the sampling loop, applies it. A failed write drops the producer to
// Errored, and the loop dials again on its next iteration.
//
// Topics use the MQTT hierarchy with slashes replaced by dots
// (home.home-1.sensors.living-room.reading) unless kafka.topic is set.
// Messages are keyed by device id so one device's readings stay ordered
// within a partition.
package kafka
