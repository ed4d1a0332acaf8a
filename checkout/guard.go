// Package checkout turns a reviewed cart into a submitted order: it
// validates payment input, throttles repeated failures, and drives the
// order-placement transaction.
package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/solelace/storefront/domain"
	"github.com/solelace/storefront/kv"
)

// guardKey is the fixed storage key for the persisted guard record.
// The guard is scoped to the whole application, not to any cart.
const guardKey = "payment_guard"

// Guard defaults.
const (
	DefaultMaxAttempts = 5
	DefaultCooldown    = 120 * time.Second

	tickInterval = time.Second
)

// guardRecord is the persisted shape of the guard state.
type guardRecord struct {
	Attempts     int        `json:"attempts"`
	BlockedUntil *time.Time `json:"blockedUntil"`
}

// Guard throttles failed payment submissions: after maxAttempts
// failures, submissions are blocked until the cooldown elapses. State
// persists across restarts.
//
// The guard deliberately counts pre-submission validation failures
// (missing fields, malformed card) as attempts, matching the product's
// observed throttling behavior.
type Guard struct {
	store       kv.Store
	maxAttempts int
	cooldown    time.Duration
	now         func() time.Time

	mu           sync.Mutex
	attempts     int
	blockedUntil time.Time
}

var _ domain.PaymentGuard = (*Guard)(nil)

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithMaxAttempts overrides the failure threshold.
func WithMaxAttempts(n int) GuardOption {
	return func(g *Guard) { g.maxAttempts = n }
}

// WithCooldown overrides the block duration.
func WithCooldown(d time.Duration) GuardOption {
	return func(g *Guard) { g.cooldown = d }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// NewGuard creates a payment attempt guard, restoring any persisted
// state so a reload does not reset an active block.
func NewGuard(store kv.Store, opts ...GuardOption) *Guard {
	g := &Guard{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		cooldown:    DefaultCooldown,
		now:         time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.restore()
	return g
}

// IsBlocked reports whether submissions are currently blocked. Expiry
// is applied lazily here as well as by Run, so a process that reloads
// after the cooldown elapsed observes the unblock immediately.
func (g *Guard) IsBlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	return !g.blockedUntil.IsZero()
}

// RecordFailure counts one failed payment submission. Reaching the
// threshold starts the cooldown.
func (g *Guard) RecordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	g.attempts++
	if g.attempts >= g.maxAttempts && g.blockedUntil.IsZero() {
		g.blockedUntil = g.now().Add(g.cooldown)
	}
	g.persistLocked()
}

// Reset clears all attempts, e.g. after a successful order.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.attempts = 0
	g.blockedUntil = time.Time{}
	g.persistLocked()
}

// RemainingCooldown returns how long until submissions unblock, or zero
// when not blocked.
func (g *Guard) RemainingCooldown() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	if g.blockedUntil.IsZero() {
		return 0
	}
	return g.blockedUntil.Sub(g.now())
}

// Attempts returns the current failure count.
func (g *Guard) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	return g.attempts
}

// Run drives the time-based Blocked→Open transition with a one-second
// tick, so UI listeners polling IsBlocked see the unblock promptly.
// Returns when ctx is canceled.
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.mu.Lock()
			g.expireLocked()
			g.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// expireLocked applies the Blocked→Open transition once the cooldown
// has elapsed: attempts return to zero and the block lifts.
func (g *Guard) expireLocked() {
	if g.blockedUntil.IsZero() {
		return
	}
	if g.now().Before(g.blockedUntil) {
		return
	}
	g.attempts = 0
	g.blockedUntil = time.Time{}
	g.persistLocked()
}

func (g *Guard) restore() {
	data, err := g.store.Get(guardKey)
	if err != nil {
		return
	}

	var record guardRecord
	if err := json.Unmarshal(data, &record); err != nil {
		// Corrupted guard state recovers to open, never surfaces.
		return
	}

	g.attempts = record.Attempts
	if record.BlockedUntil != nil {
		g.blockedUntil = *record.BlockedUntil
	}
}

func (g *Guard) persistLocked() {
	record := guardRecord{Attempts: g.attempts}
	if !g.blockedUntil.IsZero() {
		t := g.blockedUntil
		record.BlockedUntil = &t
	}

	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	// Persistence is best effort; the in-memory state stays correct for
	// this session even if the write fails.
	_ = g.store.Put(guardKey, data)
}
