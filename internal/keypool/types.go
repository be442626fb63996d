package keypool

import "time"

// tracks one upstream credential and its rotation state.
// Lives in memory only - counters reset when the process restarts.
type key struct {
	id           string
	secret       string
	usageCount   int
	windowReset  time.Time
	blocked      bool
	blockedUntil time.Time
	lastUsedAt   time.Time
	successCount int
	failureCount int
}

// a selected credential handed to the dispatcher for one call
type Lease struct {
	ID     string
	Secret string
}

// tunes rotation behaviour for a pool
type Options struct {
	// requests allowed per key per window before it is benched
	MaxUsagePerWindow int

	// usage window length; counters reset when it rolls over
	Window time.Duration

	// minimum gap between two uses of the same key, relaxed when
	// every key is inside the gap
	RotationDelay time.Duration

	// cooldown applied to a key after an upstream failure
	BlockDuration time.Duration
}

// point-in-time view of a key for the stats endpoint, secret redacted
type KeyStats struct {
	ID           string    `json:"id"`
	Secret       string    `json:"secret"` // redacted, last 4 characters only
	UsageCount   int       `json:"usage_count"`
	MaxUsage     int       `json:"max_usage"`
	WindowReset  time.Time `json:"window_reset"`
	Blocked      bool      `json:"blocked"`
	BlockedUntil time.Time `json:"blocked_until,omitzero"`
	LastUsedAt   time.Time `json:"last_used_at,omitzero"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
}

// fills in zero-value options
func (o Options) withDefaults() Options {
	if o.MaxUsagePerWindow <= 0 {
		o.MaxUsagePerWindow = 60
	}

	if o.Window <= 0 {
		o.Window = time.Hour
	}

	if o.RotationDelay < 0 {
		o.RotationDelay = 0
	}

	if o.BlockDuration <= 0 {
		o.BlockDuration = 5 * time.Minute
	}

	return o
}
