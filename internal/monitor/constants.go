package monitor

import "time"

// Pipeline constants
const (
	// Default capture interval
	DefaultInterval = 5 * time.Second

	// Default confidence threshold below which contexts are dropped
	DefaultConfidenceThreshold = 0.5

	// Text length delta considered a meaningful change
	TextDeltaThreshold = 50

	// Bound on waiting for the loop goroutine during Stop
	StopTimeout = 2 * time.Second

	// Pause after a tick panic before resuming
	PanicBackoff = time.Second
)
