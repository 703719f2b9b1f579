// Package lockout implements a sliding-window brute-force guard keyed by
// (client ip, identifier). The guard runs before any expensive credential
// verification so an attacker cannot use password hashing as a DoS vector.
package lockout

import (
	"errors"
	"time"
)

var ErrLockedOut = errors.New("account locked")

// Entry holds the failure history for one (ip, identifier) key.
type Entry struct {
	Failures    []time.Time
	LockedUntil time.Time
}

// CounterStore holds lockout entries. Update must apply fn atomically with
// respect to other Update calls for the same key; fn receives nil when no
// entry exists and its result becomes the stored entry. The in-memory
// implementation is per-instance; a multi-instance deployment should back
// this with a shared store with TTL semantics or lockout guarantees degrade
// to per-instance only.
type CounterStore interface {
	Get(key string) (*Entry, bool)
	Update(key string, fn func(entry *Entry) *Entry)
	Delete(key string)
}

// Guard tracks failed attempts and gates verification behind a hard lockout.
type Guard struct {
	store         CounterStore
	maxFailures   int
	window        time.Duration
	lockoutPeriod time.Duration
	nowFunc       func() time.Time
}

type GuardOption func(*Guard)

func WithNowFunc(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.nowFunc = now
	}
}

func WithLimits(maxFailures int, window, lockoutPeriod time.Duration) GuardOption {
	return func(g *Guard) {
		g.maxFailures = maxFailures
		g.window = window
		g.lockoutPeriod = lockoutPeriod
	}
}

func NewGuard(store CounterStore, options ...GuardOption) *Guard {
	g := &Guard{
		store:         store,
		maxFailures:   5,
		window:        15 * time.Minute,
		lockoutPeriod: 10 * time.Minute,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.store == nil {
		g.store = NewInMemoryCounterStore()
	}
	return g
}

// Precheck rejects with ErrLockedOut while a lockout window is active for the
// key. The lockout is a hard gate: further attempts neither extend nor shrink
// the failure window until locked_until passes.
func (g *Guard) Precheck(ip, identifier string) error {
	entry, ok := g.store.Get(key(ip, identifier))
	if !ok {
		return nil
	}
	if g.nowFunc().Before(entry.LockedUntil) {
		return ErrLockedOut
	}
	return nil
}

// RecordFailure appends a failure timestamp; once failures within the rolling
// window reach the configured max, the key is locked for the lockout period.
func (g *Guard) RecordFailure(ip, identifier string) {
	now := g.nowFunc()

	// The read-modify-write must be atomic: two concurrent failures for the
	// same key may not lose a count or overwrite an established lockout.
	g.store.Update(key(ip, identifier), func(entry *Entry) *Entry {
		if entry == nil {
			entry = &Entry{}
		}
		if now.Before(entry.LockedUntil) {
			return entry
		}

		entry.Failures = append(g.prune(entry.Failures, now), now)
		if len(entry.Failures) >= g.maxFailures {
			entry.LockedUntil = now.Add(g.lockoutPeriod)
			entry.Failures = nil
		}
		return entry
	})
}

// RecordSuccess clears the entry entirely.
func (g *Guard) RecordSuccess(ip, identifier string) {
	g.store.Delete(key(ip, identifier))
}

// prune drops timestamps that have aged out of the rolling window.
func (g *Guard) prune(failures []time.Time, now time.Time) []time.Time {
	kept := failures[:0]
	for _, t := range failures {
		if now.Sub(t) < g.window {
			kept = append(kept, t)
		}
	}
	return kept
}

func key(ip, identifier string) string {
	return ip + "|" + identifier
}
