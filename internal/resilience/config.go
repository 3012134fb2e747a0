package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. Zero values keep
// the defaults.
func FromRetryConfig(maxAttempts, initialBackoffSecs, maxBackoffSecs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffSecs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffSecs) * time.Second
	}
	if maxBackoffSecs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffSecs) * time.Second
	}
	return cfg
}
