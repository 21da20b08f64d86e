package publish

import (
	"fmt"
	"time"
)

// State is the broker connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateErrored
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// NeedsConnect reports whether a connection attempt should be started.
func (s State) NeedsConnect() bool {
	return s == StateDisconnected || s == StateErrored
}

// Publisher forwards payloads to a message broker.
//
// Implementations are driven from a single goroutine. Connect starts an
// attempt and returns; its outcome becomes visible through State after a
// later PumpEvents call.
type Publisher interface {
	// Connect starts a connection attempt. Calling it while connecting or
	// connected is a no-op.
	Connect() error

	// Publish sends one message. It fails with ErrPublish unless connected.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PumpEvents applies pending connection events, waiting at most timeout
	// for the first one.
	PumpEvents(timeout time.Duration) error

	// State returns the current connection state.
	State() State

	// Disconnect closes the connection. Safe when not connected.
	Disconnect()

	// Close releases all resources. Safe to call more than once.
	Close() error
}
