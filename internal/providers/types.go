// Package providers normalizes the five supported exchanges' native OHLCV
// responses into the canonical candle shape and classifies their failure
// modes. Adapters are stateless; see fetcher for the back-off state that
// wraps a single call.
package providers

import (
	"context"
	"time"

	"github.com/yourusername/datacollector/internal/models"
)

// Outcome classifies a FetchResult so the orchestrator can branch on intent
// rather than inferring it from an empty slice.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeEmpty         Outcome = "empty"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeTerminalError Outcome = "terminal_error"
)

// FetchRequest is the transient input to one adapter call.
type FetchRequest struct {
	Symbol      string
	Timeframe   models.Timeframe
	Limit       int
	ToTimestamp *int64 // inclusive upper bound, nil when unset
}

// FetchResult is the transient output of one adapter call.
type FetchResult struct {
	Candles []models.Candle
	Source  string
	Latency time.Duration
	Outcome Outcome
	Reason  string // diagnostic detail; empty on OutcomeOK
	// RateLimitEvents counts rate_limited responses absorbed by the
	// Fetcher's retry loop before this result was produced. Adapters
	// never set this; Fetcher.Invoke fills it in on every return path.
	RateLimitEvents int
}

// Capabilities is an adapter's declarative capability descriptor.
type Capabilities struct {
	SupportedTimeframes []models.Timeframe
	MaxCandlesPerCall   int
	SupportsToTimestamp bool
}

func (c Capabilities) supports(tf models.Timeframe) bool {
	for _, t := range c.SupportedTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Adapter is one provider's translator between its wire format and the
// canonical Candle type, plus the capability descriptor the planner needs.
type Adapter interface {
	ID() string
	Capabilities() Capabilities
	// SymbolMap translates a canonical symbol to this provider's native
	// pair naming. ok is false when the provider does not serve symbol.
	SymbolMap(symbol string) (native string, ok bool)
	// Priority orders adapters for a given timeframe; lower is preferred.
	Priority(tf models.Timeframe) int
	// Fetch executes one call. It never panics or returns a Go error for
	// transport/provider failures — those are surfaced through Outcome.
	Fetch(ctx context.Context, req FetchRequest) FetchResult
}
