// Package cooldown rate-limits message accrual per guild member.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Key identifies a member within a guild.
type Key struct {
	GuildID string
	UserID  string
}

// Tracker maps members to the time they next become eligible. Expired
// entries are dropped by Sweep so the map stays bounded by the number of
// members active within one window.
type Tracker struct {
	mu        sync.Mutex
	window    time.Duration
	deadlines map[Key]time.Time
	now       func() time.Time
}

func New(window time.Duration) *Tracker {
	return &Tracker{
		window:    window,
		deadlines: make(map[Key]time.Time),
		now:       time.Now,
	}
}

// Allow reports whether k is off cooldown and, if so, starts a new window.
func (t *Tracker) Allow(k Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if deadline, ok := t.deadlines[k]; ok && now.Before(deadline) {
		return false
	}
	t.deadlines[k] = now.Add(t.window)
	return true
}

// Remaining is the time left on k's cooldown, zero when eligible.
func (t *Tracker) Remaining(k Key) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline, ok := t.deadlines[k]
	if !ok {
		return 0
	}
	if d := deadline.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// Sweep evicts expired entries and returns how many were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for k, deadline := range t.deadlines {
		if !now.Before(deadline) {
			delete(t.deadlines, k)
			removed++
		}
	}
	return removed
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.deadlines)
}

// Run sweeps every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration, onSweep func(removed, remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := t.Sweep()
			if onSweep != nil {
				onSweep(removed, t.Len())
			}
		}
	}
}
