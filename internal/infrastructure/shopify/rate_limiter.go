package shopify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// APIClass selects which of a store's rate budgets a call draws from. The
// REST budget is counted in requests, the GraphQL budget in query cost
// points; the two never share tokens.
type APIClass string

const (
	APIClassREST    APIClass = "rest"
	APIClassGraphQL APIClass = "graphql"
)

// Per-class refill rates and bucket capacities, in tokens per second and
// tokens. These match the standard Shopify API budgets.
const (
	restRefillRate     = 2.0
	restBurstCapacity  = 40.0
	graphqlRefillRate  = 100.0
	graphqlBurstCapacity = 1000.0
)

type bucketKey struct {
	storeDomain string
	class       APIClass
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

type classBudget struct {
	rate     float64
	capacity float64
}

// RateLimiter enforces per-store, per-class token buckets. Buckets are
// created lazily on first use and refill continuously: a partial interval
// yields a partial token. One store exhausting its budget never delays
// another store's calls.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	budgets map[APIClass]classBudget
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRateLimiter creates a rate limiter with the standard per-class budgets.
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithOptions(logger, time.Now)
}

// NewRateLimiterWithOptions creates a rate limiter with an injectable clock.
func NewRateLimiterWithOptions(logger zerolog.Logger, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		budgets: map[APIClass]classBudget{
			APIClassREST:    {rate: restRefillRate, capacity: restBurstCapacity},
			APIClassGraphQL: {rate: graphqlRefillRate, capacity: graphqlBurstCapacity},
		},
		now:    now,
		logger: logger,
	}
}

// Acquire blocks until cost tokens are available in the store's bucket for
// the given class, then debits them. It returns a rate limit error when the
// context expires before the tokens become available; nothing is debited in
// that case.
func (rl *RateLimiter) Acquire(ctx context.Context, storeDomain string, class APIClass, cost float64) error {
	for {
		wait, err := rl.tryDebit(storeDomain, class, cost)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: gave up waiting for %s budget of %s: %v",
				domain.ErrRateLimitExceeded, class, storeDomain, ctx.Err())
		}
	}
}

// TryAcquire debits cost tokens if they are available right now. On
// insufficient budget it returns a rate limit error and debits nothing.
func (rl *RateLimiter) TryAcquire(storeDomain string, class APIClass, cost float64) error {
	wait, err := rl.tryDebit(storeDomain, class, cost)
	if err != nil {
		return err
	}
	if wait > 0 {
		return fmt.Errorf("%w: %s budget of %s exhausted, next token in %s",
			domain.ErrRateLimitExceeded, class, storeDomain, wait.Round(time.Millisecond))
	}
	return nil
}

// Tokens reports the current balance of a bucket after refill. Intended for
// introspection; the balance may change immediately after it returns.
func (rl *RateLimiter) Tokens(storeDomain string, class APIClass) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, budget := rl.bucketFor(storeDomain, class)
	rl.refill(b, budget)
	return b.tokens
}

// tryDebit debits cost tokens if available and returns the wait until enough
// tokens accrue otherwise. A zero wait means the debit happened.
func (rl *RateLimiter) tryDebit(storeDomain string, class APIClass, cost float64) (time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	budgetDef, ok := rl.budgets[class]
	if !ok {
		return 0, fmt.Errorf("unknown api class %q", class)
	}
	if cost > budgetDef.capacity {
		return 0, fmt.Errorf("cost %.1f exceeds %s bucket capacity %.1f", cost, class, budgetDef.capacity)
	}

	b, budget := rl.bucketFor(storeDomain, class)
	rl.refill(b, budget)

	if b.tokens >= cost {
		b.tokens -= cost
		return 0, nil
	}

	deficit := cost - b.tokens
	wait := time.Duration(deficit / budget.rate * float64(time.Second))
	rl.logger.Debug().
		Str("store", storeDomain).
		Str("class", string(class)).
		Float64("tokens", b.tokens).
		Float64("cost", cost).
		Dur("wait", wait).
		Msg("Rate budget exhausted, waiting for refill")
	return wait, nil
}

func (rl *RateLimiter) bucketFor(storeDomain string, class APIClass) (*bucket, classBudget) {
	budget := rl.budgets[class]
	key := bucketKey{storeDomain: storeDomain, class: class}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: budget.capacity, lastRefill: rl.now()}
		rl.buckets[key] = b
	}
	return b, budget
}

// refill credits tokens for the time elapsed since the last refill, capped at
// the bucket capacity. Callers must hold rl.mu.
func (rl *RateLimiter) refill(b *bucket, budget classBudget) {
	now := rl.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * budget.rate
	if b.tokens > budget.capacity {
		b.tokens = budget.capacity
	}
	b.lastRefill = now
}
