package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/yourusername/datacollector/internal/models"
)

// Coinbase is adapter D: pages via a `since`-style cursor expressed in
// seconds, serves up to 720 candles per call, covers every timeframe down
// to 1m, but its native response order is newest-first and its symbol
// coverage is limited to a short list of majors.
type Coinbase struct {
	BaseURL string
	Client  *http.Client
}

func NewCoinbase() *Coinbase {
	return &Coinbase{
		BaseURL: "https://api.exchange.coinbase.com/products",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Coinbase) ID() string { return "coinbase" }

func (a *Coinbase) Capabilities() Capabilities {
	return Capabilities{
		SupportedTimeframes: []models.Timeframe{
			models.Timeframe1m, models.Timeframe5m, models.Timeframe15m,
			models.Timeframe30m, models.Timeframe1h, models.Timeframe1d,
		},
		MaxCandlesPerCall:   720,
		SupportsToTimestamp: false, // reached via `since` cursor, not an upper-bound anchor
	}
}

var coinbaseSymbols = map[string]bool{
	"BTC": true, "ETH": true, "LTC": true, "SOL": true, "ADA": true,
}

func (a *Coinbase) SymbolMap(symbol string) (string, bool) {
	if !coinbaseSymbols[symbol] {
		return "", false
	}
	return symbol + "-USD", true
}

func (a *Coinbase) Priority(tf models.Timeframe) int {
	return 3
}

func (a *Coinbase) granularity(tf models.Timeframe) (int64, bool) {
	secs, ok := models.SecondsFor(tf)
	return secs, ok
}

func (a *Coinbase) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	if !a.Capabilities().supports(req.Timeframe) {
		return errResult(a.ID(), OutcomeTerminalError, fmt.Sprintf("unsupported timeframe %q", req.Timeframe))
	}
	native, ok := a.SymbolMap(req.Symbol)
	if !ok {
		return errResult(a.ID(), OutcomeTerminalError, "symbol_map: unsupported symbol "+req.Symbol)
	}
	granularity, _ := a.granularity(req.Timeframe)

	url := fmt.Sprintf("%s/%s/candles?granularity=%d", a.BaseURL, native, granularity)
	// Coinbase's "since" cursor here is modeled via the `end` query
	// parameter: a ToTimestamp set by the caller is sent as `end`. The
	// planner never sets one for this adapter, since its capabilities
	// declare no upper-bound support.
	if req.ToTimestamp != nil {
		url += fmt.Sprintf("&end=%d", *req.ToTimestamp)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errResult(a.ID(), OutcomeTerminalError, err.Error())
	}

	start := time.Now()
	resp, err := a.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeRateLimited, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: err.Error()}
	}

	if outcome, matched := classifyHTTPStatus(resp.StatusCode); matched {
		var envErr struct {
			Message string `json:"message"`
		}
		reason := fmt.Sprintf("http %d", resp.StatusCode)
		if json.Unmarshal(body, &envErr) == nil && envErr.Message != "" {
			reason = envErr.Message
		}
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: outcome, Reason: reason}
	}

	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if len(rows) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	limit := req.Limit
	if limit <= 0 || limit > a.Capabilities().MaxCandlesPerCall {
		limit = a.Capabilities().MaxCandlesPerCall
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		// Coinbase candle row: [time, low, high, open, close, volume]
		if len(row) < 6 {
			continue
		}
		candles = append(candles, models.Candle{
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Timestamp:  int64(row[0]),
			Open:       row[3],
			High:       row[2],
			Low:        row[1],
			Close:      row[4],
			Volume:     row[5],
			Providers:  []string{a.ID()},
			DataPoints: 1,
		})
		if len(candles) >= limit {
			break
		}
	}

	if len(candles) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	// Coinbase's native order is newest-first; reverse to oldest-first
	// before returning, per the adapter contract (spec.md §4.1 rule 3).
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })

	return FetchResult{Candles: candles, Source: a.ID(), Latency: latency, Outcome: OutcomeOK}
}
