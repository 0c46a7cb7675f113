package server

import "time"

// Server configuration constants
const (
	// Global IP-based rate limiting (prevents multi-connection bypass)
	IPRateLimitMessages        = 30               // Max chat messages per IP per window
	IPRateLimitWindow          = time.Second      // Sliding window duration
	IPRateLimitCleanupInterval = 5 * time.Minute  // How often to purge stale IP entries
	IPRateLimitEntryTTL        = 10 * time.Minute // TTL for inactive IP entries

	// Per-connection broadcast write bound
	BroadcastWriteTimeout = 5 * time.Second
)
