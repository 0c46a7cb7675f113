package resilience

import "time"

// Circuit breaker defaults
const (
	// Consecutive failures before the breaker opens
	DefaultThreshold = 5

	// Wait before an open breaker probes recovery
	DefaultResetTimeout = 30 * time.Second

	// Probe successes needed to close again
	DefaultHalfOpenSuccesses = 3
)

// Config holds circuit breaker settings.
type Config struct {
	Threshold         int
	ResetTimeout      time.Duration
	HalfOpenSuccesses int
}

// DefaultConfig returns settings suited to a hosted model API.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
