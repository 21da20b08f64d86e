package aht20

import "errors"

// Driver errors. Use errors.Is() to check for these in calling code.
var (
	// ErrBus is returned when a bus transaction fails or transfers fewer
	// bytes than requested.
	ErrBus = errors.New("aht20: bus transaction failed")

	// ErrTimeout is returned when the busy bit does not clear within the
	// bounded number of polls.
	ErrTimeout = errors.New("aht20: timeout waiting for busy to clear")

	// ErrNotInitialized is returned when an operation needs a Ready driver.
	ErrNotInitialized = errors.New("aht20: not initialized")

	// ErrDecode is returned for raw values that cannot come from the
	// 20-bit packing.
	ErrDecode = errors.New("aht20: invalid raw measurement")
)
