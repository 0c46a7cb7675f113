package monitor

import (
	"time"
	"unicode/utf8"
)

// Changed reports whether the candidate is a meaningful change from the
// previous accepted context. OR-policy: no previous, text length delta
// above threshold, differing image hash, or staleness beyond twice the
// polling interval.
func Changed(prev *ScreenContext, cand ScreenContext, interval time.Duration) bool {
	if prev == nil {
		return true
	}

	delta := utf8.RuneCountInString(cand.Text) - utf8.RuneCountInString(prev.Text)
	if delta < 0 {
		delta = -delta
	}
	if delta > TextDeltaThreshold {
		return true
	}

	if cand.ImageHash != prev.ImageHash {
		return true
	}

	// Periodic refresh bounds staleness even on a static screen
	if cand.Timestamp.Sub(prev.Timestamp) > 2*interval {
		return true
	}

	return false
}
