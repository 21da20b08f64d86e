package kafka

import "errors"

// Domain-specific errors for Kafka operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when publishing before a broker answered the dial check.
	ErrNotConnected = errors.New("kafka: producer not connected")

	// ErrDialFailed is returned when no configured broker answers.
	ErrDialFailed = errors.New("kafka: broker dial failed")

	// ErrWriteFailed is returned when the broker rejects or times out a write.
	ErrWriteFailed = errors.New("kafka: write failed")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("kafka: topic cannot be empty")

	// ErrClosed is returned when connecting a producer that has been closed.
	ErrClosed = errors.New("kafka: producer closed")
)
