package publish

import "errors"

// Publisher errors. Transport packages wrap these with their own context.
var (
	// ErrPublish is returned when a message could not be handed to the broker.
	ErrPublish = errors.New("publish: message not delivered")

	// ErrConnectivity is returned when the broker cannot be reached or the
	// connection attempt could not be started.
	ErrConnectivity = errors.New("publish: broker unreachable")
)
