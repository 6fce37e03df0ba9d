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

// OKX is adapter E: the narrowest adapter, serving only the fast
// timeframes up to 1h, 300 candles per call. The bar size is sent as an
// OKX bar tag ("1m", "1H") and the upper bound as a `before` parameter in
// milliseconds.
type OKX struct {
	BaseURL string
	Client  *http.Client
}

func NewOKX() *OKX {
	return &OKX{
		BaseURL: "https://www.okx.com/api/v5/market/history-candles",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *OKX) ID() string { return "okx" }

func (a *OKX) Capabilities() Capabilities {
	return Capabilities{
		SupportedTimeframes: []models.Timeframe{
			models.Timeframe1m, models.Timeframe5m, models.Timeframe15m, models.Timeframe1h,
		},
		MaxCandlesPerCall:   300,
		SupportsToTimestamp: true,
	}
}

func (a *OKX) SymbolMap(symbol string) (string, bool) {
	if symbol == "" {
		return "", false
	}
	return symbol + "-USD", true
}

func (a *OKX) Priority(tf models.Timeframe) int {
	return 4
}

func (a *OKX) bar(tf models.Timeframe) (string, bool) {
	switch tf {
	case models.Timeframe1m:
		return "1m", true
	case models.Timeframe5m:
		return "5m", true
	case models.Timeframe15m:
		return "15m", true
	case models.Timeframe1h:
		return "1H", true
	default:
		return "", false
	}
}

type okxEnvelope struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

func (a *OKX) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	if !a.Capabilities().supports(req.Timeframe) {
		return errResult(a.ID(), OutcomeTerminalError, fmt.Sprintf("unsupported timeframe %q", req.Timeframe))
	}
	bar, _ := a.bar(req.Timeframe)
	native, ok := a.SymbolMap(req.Symbol)
	if !ok {
		return errResult(a.ID(), OutcomeTerminalError, "symbol_map: unsupported symbol "+req.Symbol)
	}

	limit := req.Limit
	if limit <= 0 || limit > a.Capabilities().MaxCandlesPerCall {
		limit = a.Capabilities().MaxCandlesPerCall
	}

	url := fmt.Sprintf("%s?instId=%s&bar=%s&limit=%d", a.BaseURL, native, bar, limit)
	if req.ToTimestamp != nil {
		url += fmt.Sprintf("&before=%d", *req.ToTimestamp*1000)
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

	if outcome, matched := classifyHTTPStatus(resp.StatusCode); matched {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: outcome, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: err.Error()}
	}

	var env okxEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if env.Code != "0" {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: env.Msg}
	}
	if len(env.Data) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	candles := make([]models.Candle, 0, len(env.Data))
	for _, row := range env.Data {
		// OKX candle row: [ts, open, high, low, close, vol, volCcy, volCcyQuote, confirm]
		if len(row) < 6 {
			continue
		}
		var ts int64
		fmt.Sscanf(row[0], "%d", &ts)
		candles = append(candles, models.Candle{
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Timestamp:  ts / 1000,
			Open:       parseDecimalString(row[1]),
			High:       parseDecimalString(row[2]),
			Low:        parseDecimalString(row[3]),
			Close:      parseDecimalString(row[4]),
			Volume:     parseDecimalString(row[5]),
			Providers:  []string{a.ID()},
			DataPoints: 1,
		})
	}

	if len(candles) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	// OKX returns newest-first; reverse to oldest-first (spec.md §4.1 rule 3).
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return FetchResult{Candles: candles, Source: a.ID(), Latency: latency, Outcome: OutcomeOK}
}
