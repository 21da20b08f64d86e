package sampler

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Outcome classifies one acquisition cycle.
type Outcome string

const (
	OutcomePublished     Outcome = "published"
	OutcomeReadFailed    Outcome = "read_failed"
	OutcomePublishFailed Outcome = "publish_failed"
	OutcomeRecovered     Outcome = "recovered"
	OutcomeInitFailed    Outcome = "init_failed"
)

// Tick describes one finished cycle. Reading is set only when the sensor
// produced a valid reading (after offsets).
type Tick struct {
	At      time.Time
	Outcome Outcome
	Reading sensor.Reading
	Err     error
}

// Stats are the loop's running counters.
type Stats struct {
	Iterations      uint64
	Cycles          uint64
	Published       uint64
	ReadFailures    uint64
	PublishFailures uint64
	Recoveries      uint64
	InitFailures    uint64
	ConnectAttempts uint64
}

// Failures returns the number of cycles that did not publish.
func (s Stats) Failures() uint64 {
	return s.ReadFailures + s.PublishFailures + s.InitFailures
}

// String returns a compact one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("cycles=%d published=%d read_failures=%d publish_failures=%d recoveries=%d",
		s.Cycles, s.Published, s.ReadFailures, s.PublishFailures, s.Recoveries)
}

func (s *Stats) count(o Outcome) {
	s.Cycles++
	switch o {
	case OutcomePublished:
		s.Published++
	case OutcomeReadFailed:
		s.ReadFailures++
	case OutcomePublishFailed:
		s.PublishFailures++
	case OutcomeRecovered:
		s.Recoveries++
	case OutcomeInitFailed:
		s.InitFailures++
	}
}
