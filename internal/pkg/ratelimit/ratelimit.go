// Package ratelimit provides a minimum-interval gate for outbound calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum delay between consecutive calls. It is safe for
// concurrent use; callers queue on the internal mutex so the spacing holds
// across goroutines within one process.
type Gate struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastCall time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate creates a Gate with the given minimum delay between calls.
// A non-positive delay disables waiting.
func NewGate(minDelay time.Duration) *Gate {
	return &Gate{
		minDelay: minDelay,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait blocks until at least the configured delay has elapsed since the
// previous call, then records the call time. Returns early with the context
// error if ctx is cancelled while waiting.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.minDelay > 0 && !g.lastCall.IsZero() {
		elapsed := g.now().Sub(g.lastCall)
		if remaining := g.minDelay - elapsed; remaining > 0 {
			if err := g.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	g.lastCall = g.now()
	return nil
}
