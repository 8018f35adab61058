package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Budget is a shared token-bucket allowance over requests per minute and
// tokens per minute. It is an explicit resource with a lifetime scoped to one
// pipeline run, shared by every concurrent caller; a call that would exceed
// the budget suspends until replenishment instead of failing.
type Budget struct {
	stopCh     chan struct{}
	requests   int
	requestCap int
	tokens     int
	tokenCap   int
	stopOnce   sync.Once
	mu         sync.Mutex
}

// NewBudget creates a budget allowing requestsPerMinute calls and
// tokensPerMinute estimated tokens.
func NewBudget(requestsPerMinute, tokensPerMinute int) *Budget {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if tokensPerMinute <= 0 {
		tokensPerMinute = 90000
	}

	b := &Budget{
		requests:   requestsPerMinute,
		requestCap: requestsPerMinute,
		tokens:     tokensPerMinute,
		tokenCap:   tokensPerMinute,
		stopCh:     make(chan struct{}),
	}

	go b.refill()

	return b
}

// Wait blocks until the budget admits one request of the estimated token
// size, or the context is canceled.
func (b *Budget) Wait(ctx context.Context, estimatedTokens int) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if b.tryAcquire(estimatedTokens) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate budget canceled: %w", ctx.Err())
		case <-ticker.C:
			// Try again
		}
	}
}

// tryAcquire attempts to take one request slot plus the token estimate
// without blocking.
func (b *Budget) tryAcquire(estimatedTokens int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if estimatedTokens > b.tokenCap {
		estimatedTokens = b.tokenCap
	}

	if b.requests > 0 && b.tokens >= estimatedTokens {
		b.requests--
		b.tokens -= estimatedTokens
		return true
	}
	return false
}

// refill periodically restores both allowances toward their caps.
func (b *Budget) refill() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.replenish()
		}
	}
}

// replenish restores one second's share of each allowance, at least one unit
// so small caps still make progress.
func (b *Budget) replenish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests += (b.requestCap + 59) / 60
	if b.requests > b.requestCap {
		b.requests = b.requestCap
	}
	b.tokens += (b.tokenCap + 59) / 60
	if b.tokens > b.tokenCap {
		b.tokens = b.tokenCap
	}
}

// Close stops the refill goroutine.
func (b *Budget) Close() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}
