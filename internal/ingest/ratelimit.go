package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRatePerSecond and DefaultBurst are spec.md §4.2's stated
// per-device rate limit defaults.
const (
	DefaultRatePerSecond = 5
	DefaultBurst         = 20
)

// staleAfter bounds how long an idle device's limiter entry survives
// before sweep evicts it, so a fleet of devices that stop sending
// doesn't grow this map without bound.
const staleAfter = 30 * time.Minute

// RateLimiter enforces spec.md §4.2's per (tenant_id, device_id) token
// bucket. It follows the teacher's pubsub.RedisPubSub mutex-guarded map
// style rather than a third-party LRU, since eviction here only needs
// a coarse periodic sweep, not strict bounded size.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucketEntry
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter constructs a RateLimiter with the given per-device
// rate and burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(ratePerSecond),
		burst:   burst,
		buckets: make(map[string]*bucketEntry),
	}
}

// Allow reports whether one event for (tenantID, deviceID) may proceed
// right now, consuming one token if so.
func (l *RateLimiter) Allow(tenantID, deviceID string) bool {
	key := tenantID + "/" + deviceID

	l.mu.Lock()
	entry, ok := l.buckets[key]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = entry
	}
	entry.lastSeen = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// Sweep evicts limiter entries idle longer than staleAfter. Callers run
// this periodically (e.g. alongside the batch writer's flush ticker);
// it is not required for correctness, only for bounded memory.
func (l *RateLimiter) Sweep() {
	cutoff := time.Now().Add(-staleAfter)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
