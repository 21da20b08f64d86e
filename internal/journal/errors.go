package journal

import "errors"

var (
	// ErrNoRun indicates RecordTick or FinishRun before StartRun.
	ErrNoRun = errors.New("journal: no active run")
)
