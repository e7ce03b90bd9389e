// Package ratelimit provides the token bucket that paces outbound Viber API calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use.
//
// Tokens accrue at rate per second up to burst; every call consumes one.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	burst      float64
	rate       float64
	lastRefill time.Time
}

// New creates a limiter that starts full.
//
//	// Up to 50 calls per second, bursting to 50
//	limiter := ratelimit.New(50, 50)
func New(burst, rate float64) *Limiter {
	return &Limiter{
		tokens:     burst,
		burst:      burst,
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// NewPerSecond creates a limiter whose burst equals one second of tokens,
// with a floor of one so a fractional rate can still make progress.
func NewPerSecond(rps float64) *Limiter {
	return New(max(rps, 1), rps)
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := time.Now()
	l.tokens = min(l.burst, l.tokens+now.Sub(l.lastRefill).Seconds()*l.rate)
	l.lastRefill = now
}

// Allow consumes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
// It returns how long the caller was held back.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return time.Since(start), nil
		}
		if l.rate <= 0 {
			l.mu.Unlock()
			<-ctx.Done()
			return time.Since(start), ctx.Err()
		}
		delay := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Since(start), ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current number of tokens.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}
