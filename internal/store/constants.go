package store

import "time"

// Retention and query limits
const (
	// DefaultMaxHistory is the conversation retention budget
	DefaultMaxHistory = 1000

	// DefaultConversationLimit bounds recent-conversation queries
	DefaultConversationLimit = 50

	// DefaultCaptureLimit bounds recent-capture queries
	DefaultCaptureLimit = 10

	// DefaultSearchLimit bounds search results
	DefaultSearchLimit = 20

	// CleanupInterval is the minimum time between retention sweeps
	CleanupInterval = 24 * time.Hour
)
