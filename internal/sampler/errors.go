package sampler

import "errors"

var (
	// ErrInvalidOptions indicates New was given an unusable configuration.
	ErrInvalidOptions = errors.New("invalid sampler options")

	// ErrInvalidReading indicates an attempt to encode a reading that fails
	// its validity invariant.
	ErrInvalidReading = errors.New("invalid reading")
)
