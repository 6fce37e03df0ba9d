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

// Binance is adapter C: serves the sub-hour timeframes plus 1h, up to 1000
// candles per call, and pages via a time window rather than a cursor.
type Binance struct {
	BaseURL string
	Client  *http.Client
}

func NewBinance() *Binance {
	return &Binance{
		BaseURL: "https://api.binance.com/api/v3/klines",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Binance) ID() string { return "binance" }

func (a *Binance) Capabilities() Capabilities {
	return Capabilities{
		SupportedTimeframes: []models.Timeframe{
			models.Timeframe1m, models.Timeframe5m, models.Timeframe15m,
			models.Timeframe30m, models.Timeframe1h,
		},
		MaxCandlesPerCall:   1000,
		SupportsToTimestamp: true,
	}
}

func (a *Binance) SymbolMap(symbol string) (string, bool) {
	if symbol == "" {
		return "", false
	}
	return symbol + "USDT", true
}

func (a *Binance) Priority(tf models.Timeframe) int {
	return 2
}

type binanceErrorEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (a *Binance) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	if !a.Capabilities().supports(req.Timeframe) {
		return errResult(a.ID(), OutcomeTerminalError, fmt.Sprintf("unsupported timeframe %q", req.Timeframe))
	}
	native, ok := a.SymbolMap(req.Symbol)
	if !ok {
		return errResult(a.ID(), OutcomeTerminalError, "symbol_map: unsupported symbol "+req.Symbol)
	}

	limit := req.Limit
	if limit <= 0 || limit > a.Capabilities().MaxCandlesPerCall {
		limit = a.Capabilities().MaxCandlesPerCall
	}

	url := fmt.Sprintf("%s?symbol=%s&interval=%s&limit=%d", a.BaseURL, native, req.Timeframe, limit)
	if req.ToTimestamp != nil {
		url += fmt.Sprintf("&endTime=%d", *req.ToTimestamp*1000)
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
		var envErr binanceErrorEnvelope
		reason := fmt.Sprintf("http %d", resp.StatusCode)
		if json.Unmarshal(body, &envErr) == nil && envErr.Msg != "" {
			reason = envErr.Msg
		}
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: outcome, Reason: reason}
	}

	var rows [][]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if len(rows) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openTimeMs, _ := row[0].(float64)
		open := parseDecimalString(row[1])
		high := parseDecimalString(row[2])
		low := parseDecimalString(row[3])
		closePrice := parseDecimalString(row[4])
		volume := parseDecimalString(row[5])

		candles = append(candles, models.Candle{
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Timestamp:  int64(openTimeMs) / 1000,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closePrice,
			Volume:     volume,
			Providers:  []string{a.ID()},
			DataPoints: 1,
		})
	}
	// Binance klines are already returned oldest-first.

	if len(candles) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}
	return FetchResult{Candles: candles, Source: a.ID(), Latency: latency, Outcome: OutcomeOK}
}
