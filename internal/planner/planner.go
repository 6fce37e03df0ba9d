// Package planner decides the next fetch window for a (symbol, timeframe)
// pair given its current coverage, generalizing the teacher's
// HistoricalDataConfig.GetHistoricalStartDate from a fixed lookback into a
// coverage-aware, adapter-routed decision.
package planner

import (
	"fmt"

	"github.com/yourusername/datacollector/internal/models"
	"github.com/yourusername/datacollector/internal/providers"
)

// ErrPairSkipped signals that no adapter can serve this (symbol,
// timeframe) at all; the orchestrator should mark it permanently skipped
// for the cycle without treating it as fatal.
type ErrPairSkipped struct {
	Symbol    string
	Timeframe models.Timeframe
}

func (e ErrPairSkipped) Error() string {
	return fmt.Sprintf("%s-%s: no adapter", e.Symbol, e.Timeframe)
}

// Planner computes the next backfill window for a pair.
type Planner struct {
	registry *providers.Registry
}

func New(registry *providers.Registry) *Planner {
	return &Planner{registry: registry}
}

// NextWindow implements spec.md §4.4: given the pair's current coverage
// (nil if never merged), a target horizon in days, and the current time,
// it returns the adapter chosen to serve the window plus the request
// itself. A nil request (with a nil error) means the pair is already
// complete for this horizon.
func (p *Planner) NextWindow(symbol string, timeframe models.Timeframe, coverage *models.CoverageRecord, targetDays int, now int64) (providers.Adapter, *providers.FetchRequest, error) {
	candidates := p.registry.Supporting(timeframe)
	if len(candidates) == 0 {
		return nil, nil, ErrPairSkipped{Symbol: symbol, Timeframe: timeframe}
	}

	resolvable := make([]providers.Adapter, 0, len(candidates))
	for _, a := range candidates {
		if _, ok := a.SymbolMap(symbol); ok {
			resolvable = append(resolvable, a)
		}
	}
	if len(resolvable) == 0 {
		return nil, nil, ErrPairSkipped{Symbol: symbol, Timeframe: timeframe}
	}

	secs, ok := models.SecondsFor(timeframe)
	if !ok {
		return nil, nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	targetOldest := now - int64(targetDays)*86400

	if coverage != nil && coverage.OldestTimestamp <= targetOldest {
		return nil, nil, nil // complete for this horizon; never regresses
	}

	var toTimestamp int64
	var candlesToFill int64
	if coverage == nil {
		toTimestamp = now
		candlesToFill = (now - targetOldest) / secs
	} else {
		toTimestamp = coverage.OldestTimestamp - 1
		candlesToFill = (coverage.OldestTimestamp - targetOldest) / secs
	}
	if candlesToFill < 1 {
		candlesToFill = 1
	}

	// Cold start always anchors to_timestamp at now (spec.md §4.4 step 3),
	// which is itself an upper-bound anchor, not an unbounded request — so
	// it needs a to-timestamp-capable adapter exactly like a continuation
	// does. Comparing toTimestamp < now alone would miss this because a
	// cold start sets toTimestamp == now.
	pagingNeeded := coverage == nil || toTimestamp < now

	var chosen providers.Adapter
	for _, a := range resolvable {
		if pagingNeeded && !a.Capabilities().SupportsToTimestamp {
			continue
		}
		chosen = a
		break
	}

	clampToCoverage := false
	if chosen == nil {
		// No adapter supports upper-bound paging; fall back to the
		// highest-priority resolvable adapter and cap the limit at the
		// remaining gap between current coverage and the target horizon.
		// The request carries no upper bound, so the adapter picks which
		// bars it returns; nothing here ensures they predate coverage.
		chosen = resolvable[0]
		clampToCoverage = true
	}

	limit := int(candlesToFill)
	if limit > chosen.Capabilities().MaxCandlesPerCall {
		limit = chosen.Capabilities().MaxCandlesPerCall
	}
	if clampToCoverage && coverage != nil {
		maxSafe := int((coverage.OldestTimestamp - targetOldest) / secs)
		if maxSafe > 0 && limit > maxSafe {
			limit = maxSafe
		}
	}

	var req *providers.FetchRequest
	if pagingNeeded && chosen.Capabilities().SupportsToTimestamp {
		ts := toTimestamp
		req = &providers.FetchRequest{Symbol: symbol, Timeframe: timeframe, Limit: limit, ToTimestamp: &ts}
	} else {
		req = &providers.FetchRequest{Symbol: symbol, Timeframe: timeframe, Limit: limit}
	}

	return chosen, req, nil
}
