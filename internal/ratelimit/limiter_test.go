package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashora/settlement-service/internal/ratelimit"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(policies map[string]ratelimit.Policy) (*ratelimit.Limiter, *manualClock) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	limiter := ratelimit.NewLimiter(policies, ratelimit.NewMemoryStore()).WithClock(clock.Now)
	return limiter, clock
}

func TestLimiterRejectsOverQuota(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpSecretDecrypt: {Window: time.Minute, Limit: 10},
	})

	for i := 0; i < 10; i++ {
		res := limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a")
		require.True(t, res.Allowed, "call %d should pass", i+1)
		require.Equal(t, 10-(i+1), res.Remaining)
	}

	res := limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a")
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, time.Minute)
}

func TestLimiterWindowReset(t *testing.T) {
	limiter, clock := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpSecretDecrypt: {Window: time.Minute, Limit: 10},
	})

	for i := 0; i < 11; i++ {
		limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a")
	}
	require.False(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a").Allowed)

	// The fixed window resets wholesale, not gradually.
	clock.Advance(61 * time.Second)
	res := limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a")
	require.True(t, res.Allowed)
	require.Equal(t, 9, res.Remaining)
}

func TestLimiterIsolatesActorsAndResources(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpSecretDecrypt: {Window: time.Minute, Limit: 1},
	})

	require.True(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a").Allowed)
	require.False(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-a").Allowed)

	// A different actor or a different resource has its own window.
	require.True(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-2", "secret-a").Allowed)
	require.True(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "secret-b").Allowed)
}

func TestLimiterOperationQuotasIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpSecretDecrypt: {Window: time.Minute, Limit: 1},
		ratelimit.OpKeyRotation:   {Window: time.Hour, Limit: 5},
	})

	require.True(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "r").Allowed)
	require.False(t, limiter.Allow(ratelimit.OpSecretDecrypt, "user-1", "r").Allowed)

	// Exhausting one operation class leaves the others untouched.
	res := limiter.Allow(ratelimit.OpKeyRotation, "user-1", "r")
	require.True(t, res.Allowed)
	require.Equal(t, 4, res.Remaining)
}

func TestLimiterResultMetadata(t *testing.T) {
	limiter, clock := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpAPI: {Window: time.Minute, Limit: 100},
	})

	res := limiter.Allow(ratelimit.OpAPI, "user-1", "/api/v1/orders")
	require.True(t, res.Allowed)
	require.Equal(t, 100, res.Limit)
	require.Equal(t, 99, res.Remaining)
	require.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
	require.Zero(t, res.RetryAfter)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	now := time.Unix(1700000000, 0)

	store.Incr("api:user-1:/orders", time.Minute, now)
	store.Incr("api:user-2:/orders", time.Minute, now.Add(50*time.Second))

	// Only windows that already closed are evicted.
	store.Sweep(now.Add(70 * time.Second))

	e := store.Incr("api:user-1:/orders", time.Minute, now.Add(71*time.Second))
	require.Equal(t, 1, e.Count)

	e = store.Incr("api:user-2:/orders", time.Minute, now.Add(71*time.Second))
	require.Equal(t, 2, e.Count)
}

func TestLimiterConcurrentCounting(t *testing.T) {
	limiter, _ := newTestLimiter(map[string]ratelimit.Policy{
		ratelimit.OpAPI: {Window: time.Minute, Limit: 50},
	})

	var wg sync.WaitGroup
	allowed := make([]bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed[i] = limiter.Allow(ratelimit.OpAPI, "user-1", "r").Allowed
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range allowed {
		if ok {
			count++
		}
	}
	require.Equal(t, 50, count)
}
