package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy is a token bucket: Burst requests at once, refilled every Every.
type Policy struct {
	Burst int
	Every time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per key and action.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*entry
	policies map[string]Policy
	fallback Policy
}

// Action names with their own policy.
const (
	ActionGeneral     = "general"
	ActionPayment     = "payment"
	ActionCreateOffer = "create_offer"
	ActionWebhook     = "webhook"
)

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*entry),
		policies: map[string]Policy{
			// 60 requests per minute
			ActionGeneral: {Burst: 60, Every: time.Second},
			// 10 payment calls per minute
			ActionPayment: {Burst: 10, Every: 6 * time.Second},
			// 20 offers per hour
			ActionCreateOffer: {Burst: 20, Every: 3 * time.Minute},
			ActionWebhook: {Burst: 100, Every: 600 * time.Millisecond},
		},
		fallback: Policy{Burst: 20, Every: 3 * time.Second},
	}
}

// SetPolicy overrides the bucket shape for an action. Existing buckets keep
// their old shape.
func (rl *RateLimiter) SetPolicy(action string, p Policy) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[action] = p
}

// Allow consumes a token and reports how long to wait when none is left.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	now := time.Now()
	limiter := rl.bucket(key, action, now)

	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) bucket(key, action string, now time.Time) *rate.Limiter {
	k := key + ":" + action

	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.buckets[k]
	if !ok {
		p, found := rl.policies[action]
		if !found {
			p = rl.fallback
		}
		e = &entry{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[k] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	now := time.Now()
	for k, e := range rl.buckets {
		if now.Sub(e.lastSeen) > maxIdle {
			delete(rl.buckets, k)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
