package keypool

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// returned by Acquire when no key is currently usable
var ErrExhausted = errors.New("no api keys available")

// manages a set of upstream credentials shared by all requests in the
// process. All state transitions happen under the mutex.
type Pool struct {
	mu   sync.Mutex
	keys []*key
	opts Options

	// injectable clock for tests
	now func() time.Time
}

// creates a pool from an ordered list of secrets. An empty list yields a
// usable pool whose Acquire always reports exhaustion.
func New(secrets []string, opts Options) *Pool {
	opts = opts.withDefaults()

	p := &Pool{
		opts: opts,
		now:  time.Now,
	}

	start := p.now()
	for i, secret := range secrets {
		p.keys = append(p.keys, &key{
			id:          fmt.Sprintf("key-%d", i+1),
			secret:      secret,
			windowReset: start.Add(opts.Window),
		})
	}

	return p
}

// returns the number of keys in the pool
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.keys)
}

// picks the best available key. Preference order: not blocked, under the
// usage cap, outside the rotation delay, lowest usage count, oldest last
// use. The rotation delay is relaxed when it excludes every candidate.
func (p *Pool) Acquire() (Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.unblockExpiredLocked(now)

	best := p.pickLocked(now, true)
	if best == nil {
		best = p.pickLocked(now, false)
	}

	if best == nil {
		return Lease{}, ErrExhausted
	}

	return Lease{ID: best.id, Secret: best.secret}, nil
}

// records the result of a dispatched call. Success advances the usage
// counter; failure additionally benches the key for the block duration.
// A key that reaches the usage cap is benched until its window resets.
func (p *Pool) RecordOutcome(id string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.findLocked(id)
	if k == nil {
		return
	}

	now := p.now()
	k.usageCount++
	k.lastUsedAt = now

	if success {
		k.successCount++
	} else {
		k.failureCount++
		k.blocked = true
		k.blockedUntil = now.Add(p.opts.BlockDuration)
	}

	if k.usageCount >= p.opts.MaxUsagePerWindow {
		k.blocked = true
		// bench until the usage window rolls over, unless a failure
		// block already extends past it
		if k.windowReset.After(k.blockedUntil) {
			k.blockedUntil = k.windowReset
		}
	}
}

// returns redacted per-key counters for introspection
func (p *Pool) Stats() []KeyStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unblockExpiredLocked(p.now())

	stats := make([]KeyStats, 0, len(p.keys))
	for _, k := range p.keys {
		stats = append(stats, KeyStats{
			ID:           k.id,
			Secret:       redact(k.secret),
			UsageCount:   k.usageCount,
			MaxUsage:     p.opts.MaxUsagePerWindow,
			WindowReset:  k.windowReset,
			Blocked:      k.blocked,
			BlockedUntil: k.blockedUntil,
			LastUsedAt:   k.lastUsedAt,
			SuccessCount: k.successCount,
			FailureCount: k.failureCount,
		})
	}

	return stats
}

// clears expired blocks and rolls usage windows forward. Callers hold the mutex.
func (p *Pool) unblockExpiredLocked(now time.Time) {
	for _, k := range p.keys {
		// window rollover resets the usage counter
		if !now.Before(k.windowReset) {
			k.usageCount = 0
			for !now.Before(k.windowReset) {
				k.windowReset = k.windowReset.Add(p.opts.Window)
			}
		}

		if k.blocked && !now.Before(k.blockedUntil) {
			k.blocked = false
		}
	}
}

// selects the least-used eligible key. Callers hold the mutex.
func (p *Pool) pickLocked(now time.Time, honorRotationDelay bool) *key {
	var best *key

	for _, k := range p.keys {
		if k.blocked || k.usageCount >= p.opts.MaxUsagePerWindow {
			continue
		}

		if honorRotationDelay && !k.lastUsedAt.IsZero() && now.Sub(k.lastUsedAt) < p.opts.RotationDelay {
			continue
		}

		if best == nil ||
			k.usageCount < best.usageCount ||
			(k.usageCount == best.usageCount && k.lastUsedAt.Before(best.lastUsedAt)) {
			best = k
		}
	}

	return best
}

// finds a key by id. Callers hold the mutex.
func (p *Pool) findLocked(id string) *key {
	for _, k := range p.keys {
		if k.id == id {
			return k
		}
	}

	return nil
}

// keeps the last four characters of a secret for display
func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}

	return "****" + secret[len(secret)-4:]
}
