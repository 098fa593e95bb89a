package server

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between actions sharing a key.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
	now         func() time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow records an attempt for key. When refused it returns how long the
// caller has to wait.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	if r == nil || r.minInterval <= 0 {
		return true, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.lastSeen[key]; ok {
		if elapsed := now.Sub(last); elapsed < r.minInterval {
			return false, r.minInterval - elapsed
		}
	}
	r.lastSeen[key] = now
	return true, 0
}

func retryAfterSeconds(wait time.Duration) int {
	return int(math.Ceil(wait.Seconds()))
}

func manualScanError(wait time.Duration) string {
	return fmt.Sprintf("scan already requested, retry in %ds", retryAfterSeconds(wait))
}
