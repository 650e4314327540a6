package preview

import (
	"fmt"
	"time"
)

// Default detection timings.
const (
	DefaultSettleDelay      = 100 * time.Millisecond
	DefaultDetectionTimeout = 3000 * time.Millisecond
)

// Timing holds the two heuristic delays of the load detector. Both are racy
// by nature: a slow but healthy page can exceed DetectionTimeout and be
// reported blocked.
type Timing struct {
	// SettleDelay is how long to wait after a load event before inspecting
	// the document.
	SettleDelay time.Duration

	// DetectionTimeout bounds how long a cell waits for any frame event.
	DetectionTimeout time.Duration
}

// DefaultTiming returns the default timings.
func DefaultTiming() Timing {
	return Timing{
		SettleDelay:      DefaultSettleDelay,
		DetectionTimeout: DefaultDetectionTimeout,
	}
}

// Validate checks that both delays are positive and ordered.
func (t Timing) Validate() error {
	if t.SettleDelay <= 0 {
		return fmt.Errorf("settle delay must be positive, got %v", t.SettleDelay)
	}
	if t.DetectionTimeout <= 0 {
		return fmt.Errorf("detection timeout must be positive, got %v", t.DetectionTimeout)
	}
	if t.SettleDelay >= t.DetectionTimeout {
		return fmt.Errorf("settle delay (%v) must be shorter than detection timeout (%v)", t.SettleDelay, t.DetectionTimeout)
	}
	return nil
}
