package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Operation classes with distinct quotas. Only api is attached to the public
// router; secret-decrypt and key-rotation are reserved for the operator
// credential endpoints and keep their quotas configured ahead of that surface.
const (
	OpAPI           = "api"
	OpSecretDecrypt = "secret-decrypt"
	OpKeyRotation   = "key-rotation"
)

type Policy struct {
	Window time.Duration
	Limit  int
}

// DefaultPolicies returns the built-in quota table. General API traffic is
// generous; secret-decrypt and key-rotation are deliberately tight.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		OpAPI:           {Window: time.Minute, Limit: 100},
		OpSecretDecrypt: {Window: time.Minute, Limit: 10},
		OpKeyRotation:   {Window: time.Hour, Limit: 5},
	}
}

type Entry struct {
	Count         int
	WindowResetAt time.Time
}

// Store holds window counters. Incr must be atomic: two concurrent requests
// from the same actor both count. Counters are in-memory only; a restart
// resets them, which is acceptable for abuse throttling.
type Store interface {
	Incr(key string, window time.Duration, now time.Time) Entry
	Sweep(now time.Time)
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Incr(key string, window time.Duration, now time.Time) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	// Lazy eviction: an expired window restarts on next access.
	if !ok || !now.Before(e.WindowResetAt) {
		e = Entry{Count: 0, WindowResetAt: now.Add(window)}
	}
	e.Count++
	s.entries[key] = e
	return e
}

func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if !now.Before(e.WindowResetAt) {
			delete(s.entries, key)
		}
	}
}

// Result tells the caller where it stands; on rejection RetryAfter is always
// positive and must be surfaced to the end user.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter struct {
	policies map[string]Policy
	store    Store
	now      func() time.Time
}

func NewLimiter(policies map[string]Policy, store Store) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{policies: policies, store: store, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts one call for (operation, actor, resource) against the
// operation's fixed window.
func (l *Limiter) Allow(operation, actor, resource string) Result {
	policy, ok := l.policies[operation]
	if !ok {
		policy = l.policies[OpAPI]
	}
	if policy.Limit <= 0 {
		return Result{Allowed: true}
	}

	now := l.now()
	key := fmt.Sprintf("%s:%s:%s", operation, actor, resource)
	e := l.store.Incr(key, policy.Window, now)

	remaining := policy.Limit - e.Count
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   e.Count <= policy.Limit,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   e.WindowResetAt,
	}
	if !res.Allowed {
		res.RetryAfter = e.WindowResetAt.Sub(now)
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res
}

func (l *Limiter) Sweep() {
	l.store.Sweep(l.now())
}
