// Package fetcher executes one adapter call with bounded retries,
// exponential back-off, and classification of transient vs terminal
// failures. Back-off state lives only inside one call chain, per spec.md
// §4.2. The per-provider pacing map is
// the one piece of state the Fetcher carries between calls, grounded on
// the teacher's service.RateLimiter lastCallTimes cache.
package fetcher

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/yourusername/datacollector/internal/providers"
)

type Fetcher struct {
	mu         sync.Mutex
	lastCallAt map[string]time.Time
	randMu     sync.Mutex
	rand       *rand.Rand
}

func New() *Fetcher {
	return &Fetcher{
		lastCallAt: make(map[string]time.Time),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Invoke executes one logical fetch against adapter, retrying on
// rate_limited outcomes with exponential back-off and jitter until
// policy.MaxRetries is exhausted. It never retries a terminal_error.
func (f *Fetcher) Invoke(ctx context.Context, adapter providers.Adapter, req providers.FetchRequest, policy Policy) providers.FetchResult {
	var result providers.FetchResult
	rateLimitEvents := 0

	for attempt := 0; ; attempt++ {
		if err := f.waitForSlot(ctx, adapter.ID(), policy); err != nil {
			return providers.FetchResult{Source: adapter.ID(), Outcome: providers.OutcomeTerminalError, Reason: err.Error(), RateLimitEvents: rateLimitEvents}
		}

		result = adapter.Fetch(ctx, req)
		f.recordCall(adapter.ID())

		switch result.Outcome {
		case providers.OutcomeOK, providers.OutcomeEmpty:
			result.RateLimitEvents = rateLimitEvents
			return result
		case providers.OutcomeTerminalError:
			result.RateLimitEvents = rateLimitEvents
			return result
		case providers.OutcomeRateLimited:
			rateLimitEvents++
			if attempt >= policy.MaxRetries {
				log.Printf("[RATE_LIMIT] %s: exhausted %d retries, giving up (%s)", adapter.ID(), policy.MaxRetries, result.Reason)
				result.RateLimitEvents = rateLimitEvents
				return result
			}
			wait := f.backoffFor(attempt, policy)
			log.Printf("[RATE_LIMIT] %s: attempt %d rate limited (%s), backing off %v", adapter.ID(), attempt+1, result.Reason, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return providers.FetchResult{Source: adapter.ID(), Outcome: providers.OutcomeTerminalError, Reason: ctx.Err().Error(), RateLimitEvents: rateLimitEvents}
			}
		default:
			result.RateLimitEvents = rateLimitEvents
			return result
		}
	}
}

// waitForSlot blocks until inter_call_delay_ms has elapsed since the last
// call to this provider, whatever its outcome, honoring ctx cancellation.
func (f *Fetcher) waitForSlot(ctx context.Context, providerID string, policy Policy) error {
	f.mu.Lock()
	last, ok := f.lastCallAt[providerID]
	f.mu.Unlock()

	if !ok {
		return nil
	}

	minDelay := time.Duration(policy.InterCallDelayMs) * time.Millisecond
	elapsed := time.Since(last)
	if elapsed >= minDelay {
		return nil
	}

	wait := minDelay - elapsed
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) recordCall(providerID string) {
	f.mu.Lock()
	f.lastCallAt[providerID] = time.Now()
	f.mu.Unlock()
}

// backoffFor computes min(base * 2^attempt, max), jittered by +/-
// policy.JitterFraction.
func (f *Fetcher) backoffFor(attempt int, policy Policy) time.Duration {
	backoffMs := float64(policy.BaseBackoffMs)
	for i := 0; i < attempt; i++ {
		backoffMs *= 2
	}
	if backoffMs > float64(policy.MaxBackoffMs) {
		backoffMs = float64(policy.MaxBackoffMs)
	}

	f.randMu.Lock()
	jitter := (f.rand.Float64()*2 - 1) * policy.JitterFraction
	f.randMu.Unlock()

	backoffMs += backoffMs * jitter
	if backoffMs < 0 {
		backoffMs = 0
	}
	return time.Duration(backoffMs) * time.Millisecond
}
