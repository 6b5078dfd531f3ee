package shopify

import (
	"context"
	"errors"
	"testing"
	"time"

	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time explicitly instead of sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter() (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	return NewRateLimiterWithOptions(zerolog.Nop(), clock.Now), clock
}

func TestRateLimiter_BurstThenExhaustion(t *testing.T) {
	rl, _ := newTestLimiter()

	// The full REST burst is available to a fresh bucket
	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	}

	err := rl.TryAcquire("acme.myshopify.com", APIClassREST, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimitExceeded))
}

func TestRateLimiter_FractionalRefill(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	}
	require.Error(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))

	// 250ms at 2 tokens/s accrues half a token: still not enough for one call
	clock.Advance(250 * time.Millisecond)
	require.Error(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	assert.InDelta(t, 0.5, rl.Tokens("acme.myshopify.com", APIClassREST), 0.001)

	// Another 250ms completes the token
	clock.Advance(250 * time.Millisecond)
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
}

func TestRateLimiter_RefillCapsAtCapacity(t *testing.T) {
	rl, clock := newTestLimiter()

	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 10))

	// Far more idle time than the bucket can hold
	clock.Advance(time.Hour)
	assert.InDelta(t, 40.0, rl.Tokens("acme.myshopify.com", APIClassREST), 0.001)
}

func TestRateLimiter_StoresAreIsolated(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("a.myshopify.com", APIClassREST, 1))
	}
	require.Error(t, rl.TryAcquire("a.myshopify.com", APIClassREST, 1))

	// Store A's exhaustion leaves store B's budget untouched
	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("b.myshopify.com", APIClassREST, 1))
	}
}

func TestRateLimiter_ClassesAreIsolated(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	}
	require.Error(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))

	// The GraphQL cost budget is a separate bucket
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 1000))
	require.Error(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 1))
}

func TestRateLimiter_GraphQLCostAccounting(t *testing.T) {
	rl, clock := newTestLimiter()

	// Queries debit their cost in points, not one token per call
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 600))
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 400))
	require.Error(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 50))

	// 100 points/s refill
	clock.Advance(500 * time.Millisecond)
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassGraphQL, 50))
}

func TestRateLimiter_CostAboveCapacityRejected(t *testing.T) {
	rl, _ := newTestLimiter()

	err := rl.TryAcquire("acme.myshopify.com", APIClassREST, 41)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimitExceeded, "impossible cost is a caller bug, not exhaustion")
}

func TestRateLimiter_AcquireHonorsContext(t *testing.T) {
	rl := NewRateLimiter(zerolog.Nop())

	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Acquire(ctx, "acme.myshopify.com", APIClassREST, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimitExceeded))

	// The aborted wait must not have debited anything: after a real refill
	// interval exactly the accrued tokens are available.
	time.Sleep(600 * time.Millisecond)
	require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
}

func TestRateLimiter_AcquireWaitsForRefill(t *testing.T) {
	rl := NewRateLimiter(zerolog.Nop())

	for i := 0; i < 40; i++ {
		require.NoError(t, rl.TryAcquire("acme.myshopify.com", APIClassREST, 1))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, rl.Acquire(ctx, "acme.myshopify.com", APIClassREST, 1))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond, "one token takes 500ms at 2/s")
}
