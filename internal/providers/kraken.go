package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/datacollector/internal/models"
)

// Kraken is adapter B: hourly and daily only, a single call covers up to a
// 365-day window, and it does not accept an upper-bound anchor — there is
// no historical paging beyond that window.
type Kraken struct {
	BaseURL string
	Client  *http.Client
}

func NewKraken() *Kraken {
	return &Kraken{
		BaseURL: "https://api.kraken.com/0/public/OHLC",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Kraken) ID() string { return "kraken" }

func (a *Kraken) Capabilities() Capabilities {
	return Capabilities{
		SupportedTimeframes: []models.Timeframe{models.Timeframe1h, models.Timeframe1d},
		MaxCandlesPerCall:   365 * 24, // one 365-day window expressed in hourly bars
		SupportsToTimestamp: false,
	}
}

var krakenPairs = map[string]string{
	"BTC":  "XXBTZUSD",
	"ETH":  "XETHZUSD",
	"LTC":  "XLTCZUSD",
	"XRP":  "XXRPZUSD",
	"DOGE": "XDGUSD",
}

func (a *Kraken) SymbolMap(symbol string) (string, bool) {
	native, ok := krakenPairs[symbol]
	return native, ok
}

func (a *Kraken) Priority(tf models.Timeframe) int {
	return 1
}

func (a *Kraken) interval(tf models.Timeframe) (int, bool) {
	switch tf {
	case models.Timeframe1h:
		return 60, true
	case models.Timeframe1d:
		return 1440, true
	default:
		return 0, false
	}
}

type krakenResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (a *Kraken) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	if !a.Capabilities().supports(req.Timeframe) {
		return errResult(a.ID(), OutcomeTerminalError, fmt.Sprintf("unsupported timeframe %q", req.Timeframe))
	}
	interval, _ := a.interval(req.Timeframe)
	native, ok := a.SymbolMap(req.Symbol)
	if !ok {
		return errResult(a.ID(), OutcomeTerminalError, "symbol_map: unsupported symbol "+req.Symbol)
	}
	if req.ToTimestamp != nil {
		// Kraken has no upper-bound anchor; the planner must not route a
		// paging request here, but defend anyway per the adapter contract.
		return errResult(a.ID(), OutcomeTerminalError, "kraken does not support to_timestamp paging")
	}

	url := fmt.Sprintf("%s?pair=%s&interval=%d", a.BaseURL, native, interval)

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

	if outcome, matched := classifyHTTPStatus(resp.StatusCode); matched {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: outcome, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: err.Error()}
	}

	var env krakenResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if len(env.Error) > 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: env.Error[0]}
	}

	raw, ok := env.Result[native]
	if !ok {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	var rows [][]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if len(rows) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		ts, _ := row[0].(float64)
		open := parseDecimalString(row[1])
		high := parseDecimalString(row[2])
		low := parseDecimalString(row[3])
		closePrice := parseDecimalString(row[4])
		volume := parseDecimalString(row[6])

		secs, _ := models.SecondsFor(req.Timeframe)
		candles = append(candles, models.Candle{
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Timestamp:  alignDown(int64(ts), secs),
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closePrice,
			Volume:     volume,
			Providers:  []string{a.ID()},
			DataPoints: 1,
		})
	}
	// Kraken already returns rows oldest-first.

	if len(candles) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}
	return FetchResult{Candles: candles, Source: a.ID(), Latency: latency, Outcome: OutcomeOK}
}

func alignDown(ts, secs int64) int64 {
	if secs <= 0 {
		return ts
	}
	return ts - (ts % secs)
}

// parseDecimalString handles Kraken's convention of returning OHLC values
// as JSON strings rather than numbers.
func parseDecimalString(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		var f float64
		fmt.Sscanf(t, "%f", &f)
		return f
	case float64:
		return t
	default:
		return 0
	}
}
