package planner

import (
	"context"
	"testing"

	"github.com/yourusername/datacollector/internal/models"
	"github.com/yourusername/datacollector/internal/providers"
)

type fakeAdapter struct {
	id       string
	caps     providers.Capabilities
	priority int
	symbols  map[string]string
}

func (f *fakeAdapter) ID() string                       { return f.id }
func (f *fakeAdapter) Capabilities() providers.Capabilities { return f.caps }
func (f *fakeAdapter) Priority(models.Timeframe) int     { return f.priority }
func (f *fakeAdapter) SymbolMap(symbol string) (string, bool) {
	native, ok := f.symbols[symbol]
	return native, ok
}
func (f *fakeAdapter) Fetch(context.Context, providers.FetchRequest) providers.FetchResult {
	return providers.FetchResult{Outcome: providers.OutcomeOK}
}

func pagingAdapter(id string, priority int) *fakeAdapter {
	return &fakeAdapter{
		id:       id,
		priority: priority,
		caps: providers.Capabilities{
			SupportedTimeframes: []models.Timeframe{models.Timeframe1h},
			MaxCandlesPerCall:   2000,
			SupportsToTimestamp: true,
		},
		symbols: map[string]string{"BTC": "XBT"},
	}
}

func newestOnlyAdapter(id string, priority int) *fakeAdapter {
	return &fakeAdapter{
		id:       id,
		priority: priority,
		caps: providers.Capabilities{
			SupportedTimeframes: []models.Timeframe{models.Timeframe1h},
			MaxCandlesPerCall:   1000,
			SupportsToTimestamp: false,
		},
		symbols: map[string]string{"BTC": "BTCUSD"},
	}
}

func TestNextWindowNoAdapterSupportsTimeframe(t *testing.T) {
	registry := providers.NewRegistry(newestOnlyAdapter("a", 1))
	p := New(registry)

	_, _, err := p.NextWindow("BTC", models.Timeframe1d, nil, 730, 1000000)
	if _, ok := err.(ErrPairSkipped); !ok {
		t.Fatalf("expected ErrPairSkipped, got %v", err)
	}
}

func TestNextWindowNoAdapterResolvesSymbol(t *testing.T) {
	a := newestOnlyAdapter("a", 1)
	delete(a.symbols, "BTC")
	registry := providers.NewRegistry(a)
	p := New(registry)

	_, _, err := p.NextWindow("BTC", models.Timeframe1h, nil, 730, 1000000)
	if _, ok := err.(ErrPairSkipped); !ok {
		t.Fatalf("expected ErrPairSkipped, got %v", err)
	}
}

func TestNextWindowCompleteCoverageReturnsNilRequest(t *testing.T) {
	registry := providers.NewRegistry(pagingAdapter("a", 1))
	p := New(registry)

	now := int64(1000 * 86400)
	coverage := &models.CoverageRecord{OldestTimestamp: now - 800*86400, NewestTimestamp: now}

	adapter, req, err := p.NextWindow("BTC", models.Timeframe1h, coverage, 730, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter != nil || req != nil {
		t.Fatalf("expected nil adapter and request for complete coverage, got %v %v", adapter, req)
	}
}

func TestNextWindowNoCoveragePrefersPagingAdapter(t *testing.T) {
	paging := pagingAdapter("paging", 2)
	newest := newestOnlyAdapter("newest", 1)
	registry := providers.NewRegistry(newest, paging)
	p := New(registry)

	now := int64(1000 * 86400)
	adapter, req, err := p.NextWindow("BTC", models.Timeframe1h, nil, 730, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.ID() != "paging" {
		t.Fatalf("expected the to-timestamp-capable adapter to be chosen, got %s", adapter.ID())
	}
	if req.ToTimestamp == nil || *req.ToTimestamp != now {
		t.Fatalf("expected ToTimestamp set to now, got %v", req.ToTimestamp)
	}
}

func TestNextWindowFallsBackAndClampsWhenNoPagingAdapter(t *testing.T) {
	registry := providers.NewRegistry(newestOnlyAdapter("newest", 1))
	p := New(registry)

	now := int64(1000 * 86400)
	coverage := &models.CoverageRecord{OldestTimestamp: now - 720*86400, NewestTimestamp: now}

	adapter, req, err := p.NextWindow("BTC", models.Timeframe1h, coverage, 730, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.ID() != "newest" {
		t.Fatalf("expected fallback to the only resolvable adapter, got %s", adapter.ID())
	}
	if req.ToTimestamp != nil {
		t.Fatalf("expected no ToTimestamp for a newest-only adapter, got %v", *req.ToTimestamp)
	}
	// remaining gap is 10 days of hourly candles; the clamp should keep the
	// request from overshooting past the already-covered region.
	if req.Limit > 240 {
		t.Fatalf("expected limit clamped to the remaining gap, got %d", req.Limit)
	}
}
