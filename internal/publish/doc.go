// Package publish defines the broker-facing contract used by the sampling
// loop. Transport packages (mqtt, kafka) implement Publisher.
//
// A Publisher's connection state is owned by the publisher and only read by
// the loop. Library callbacks never change that state directly: they queue
// events which PumpEvents applies on the calling goroutine.
package publish
