// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int {
	return l.burst
}

// Allow reports whether one request for key may proceed.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN reports whether a request costing n tokens may proceed, and takes
// the tokens if so. A request larger than the burst never succeeds.
func (l *Limiter) AllowN(key string, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// Tool names with a default limiter.
const (
	ToolDesigns = "causalsim_designs"
	ToolRun     = "causalsim_run"
)

// NewToolLimiters creates the default set of per-tool rate limiters.
// causalsim_run is metered in replications rather than calls.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolDesigns: NewLimiter(1.0, 10),              // 60/minute, burst 10
		ToolRun:     NewLimiter(50_000.0/60.0, 50_000), // 50k replications/minute
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	return CheckCost(limiters, toolName, 1)
}

// CheckCost is CheckLimit for a call that consumes cost tokens. A
// non-positive cost is rejected.
func CheckCost(limiters ToolLimiters, toolName string, cost int) error {
	if cost <= 0 {
		return fmt.Errorf("%s request has invalid cost %d", toolName, cost)
	}
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if cost > limiter.burst {
		return fmt.Errorf("%s request costs %d, above the limit of %d", toolName, cost, limiter.burst)
	}
	if !limiter.AllowN(toolName, cost) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
