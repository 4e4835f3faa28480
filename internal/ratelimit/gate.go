package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Gate paces outbound calls to the shared market-data provider. All consumers
// of the provider go through the same Gate instance so the provider-side quota
// is respected regardless of which subsystem is calling.
//
// A caller may claim an "intensive" window (e.g. a batch refresh); while the
// window is open every other caller is denied immediately instead of queued,
// except callers on the privileged allow-list which are always let through.
type Gate struct {
	mu              sync.Mutex
	minInterval     time.Duration
	lastCall        time.Time
	intensiveHolder string
	privileged      map[string]bool

	logger zerolog.Logger
	now    func() time.Time
}

// Options tune gate behaviour.
type Options struct {
	// MinInterval is the minimum spacing between granted calls.
	MinInterval time.Duration
	// PrivilegedCallers bypass another caller's intensive window.
	PrivilegedCallers []string
}

// New constructs a Gate. MinInterval must be positive.
func New(opts Options, logger zerolog.Logger) *Gate {
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Second
	}
	privileged := make(map[string]bool, len(opts.PrivilegedCallers))
	for _, caller := range opts.PrivilegedCallers {
		privileged[caller] = true
	}
	return &Gate{
		minInterval: opts.MinInterval,
		privileged:  privileged,
		logger:      logger.With().Str("component", "rate_gate").Logger(),
		now:         time.Now,
	}
}

// Acquire blocks until at least MinInterval has elapsed since the last granted
// call, then records the grant and returns true. It returns false without
// blocking when another caller holds the intensive lock (unless the requester
// is privileged), and false without updating state when ctx is cancelled while
// waiting. The internal mutex is never held across a sleep.
func (g *Gate) Acquire(ctx context.Context, caller, operation string) bool {
	for {
		g.mu.Lock()
		if g.deniedLocked(caller) {
			holder := g.intensiveHolder
			g.mu.Unlock()
			g.logger.Debug().
				Str("caller", caller).
				Str("operation", operation).
				Str("holder", holder).
				Msg("denied during intensive window")
			return false
		}

		wait := g.minInterval - g.now().Sub(g.lastCall)
		if wait <= 0 {
			g.lastCall = g.now()
			g.mu.Unlock()
			return true
		}
		g.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.logger.Debug().Str("caller", caller).Str("operation", operation).Msg("cancelled while waiting for slot")
			return false
		case <-timer.C:
		}
	}
}

// TryAcquire reports whether a call would be granted right now. It never
// blocks and never mutates gate state.
func (g *Gate) TryAcquire(caller, operation string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.deniedLocked(caller) {
		return false
	}
	return g.now().Sub(g.lastCall) >= g.minInterval
}

// TimeUntilNextSlot returns how long a caller would wait for the next grant.
// Zero means a call would be granted immediately.
func (g *Gate) TimeUntilNextSlot() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	wait := g.minInterval - g.now().Sub(g.lastCall)
	if wait < 0 {
		return 0
	}
	return wait
}

// BeginIntensive claims the intensive window for caller. Non-privileged
// callers are denied for the duration; a second BeginIntensive simply moves
// the window to the new holder.
func (g *Gate) BeginIntensive(caller string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.intensiveHolder = caller
	g.logger.Debug().Str("caller", caller).Msg("intensive window opened")
}

// EndIntensive releases the intensive window. It is a no-op when caller is not
// the current holder.
func (g *Gate) EndIntensive(caller string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.intensiveHolder != caller {
		return
	}
	g.intensiveHolder = ""
	g.logger.Debug().Str("caller", caller).Msg("intensive window closed")
}

func (g *Gate) deniedLocked(caller string) bool {
	if g.intensiveHolder == "" || g.intensiveHolder == caller {
		return false
	}
	return !g.privileged[caller]
}
