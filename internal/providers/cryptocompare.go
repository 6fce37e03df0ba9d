package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/datacollector/internal/models"
)

// CryptoCompare is adapter A: the preferred primary for 1m/1h/1d, serves up
// to 2000 candles per call and accepts an upper-bound anchor for historical
// paging. It requires an API credential.
type CryptoCompare struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewCryptoCompare(apiKey string) *CryptoCompare {
	return &CryptoCompare{
		BaseURL: "https://min-api.cryptocompare.com/data/v2",
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *CryptoCompare) ID() string { return "cryptocompare" }

func (a *CryptoCompare) Capabilities() Capabilities {
	return Capabilities{
		SupportedTimeframes: []models.Timeframe{models.Timeframe1m, models.Timeframe1h, models.Timeframe1d},
		MaxCandlesPerCall:   2000,
		SupportsToTimestamp: true,
	}
}

func (a *CryptoCompare) SymbolMap(symbol string) (string, bool) {
	if symbol == "" {
		return "", false
	}
	return strings.ToUpper(symbol), true
}

// Priority makes CryptoCompare the first choice whenever it supports the
// timeframe at all, per spec.md's "preferred primary for all three
// timeframes" note.
func (a *CryptoCompare) Priority(tf models.Timeframe) int {
	return 0
}

func (a *CryptoCompare) endpoint(tf models.Timeframe) (string, bool) {
	switch tf {
	case models.Timeframe1m:
		return "histominute", true
	case models.Timeframe1h:
		return "histohour", true
	case models.Timeframe1d:
		return "histoday", true
	default:
		return "", false
	}
}

type cryptoCompareEnvelope struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []struct {
			Time       int64   `json:"time"`
			Open       float64 `json:"open"`
			High       float64 `json:"high"`
			Low        float64 `json:"low"`
			Close      float64 `json:"close"`
			VolumeFrom float64 `json:"volumefrom"`
			VolumeTo   float64 `json:"volumeto"`
		} `json:"Data"`
	} `json:"Data"`
}

func (a *CryptoCompare) Fetch(ctx context.Context, req FetchRequest) FetchResult {
	if !a.Capabilities().supports(req.Timeframe) {
		return errResult(a.ID(), OutcomeTerminalError, fmt.Sprintf("unsupported timeframe %q", req.Timeframe))
	}
	endpoint, _ := a.endpoint(req.Timeframe)
	native, ok := a.SymbolMap(req.Symbol)
	if !ok {
		return errResult(a.ID(), OutcomeTerminalError, "symbol_map: unsupported symbol "+req.Symbol)
	}
	if a.APIKey == "" {
		return errResult(a.ID(), OutcomeTerminalError, "missing API credential")
	}

	limit := req.Limit
	if limit <= 0 || limit > a.Capabilities().MaxCandlesPerCall {
		limit = a.Capabilities().MaxCandlesPerCall
	}

	url := fmt.Sprintf("%s/%s?fsym=%s&tsym=USD&limit=%d", a.BaseURL, endpoint, native, limit)
	if req.ToTimestamp != nil {
		url += fmt.Sprintf("&toTs=%d", *req.ToTimestamp)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errResult(a.ID(), OutcomeTerminalError, err.Error())
	}
	httpReq.Header.Set("authorization", "Apikey "+a.APIKey)

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

	var env cryptoCompareEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: "schema violation: " + err.Error()}
	}
	if env.Response != "Success" {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeTerminalError, Reason: env.Message}
	}
	if len(env.Data.Data) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	candles := make([]models.Candle, 0, len(env.Data.Data))
	for _, bar := range env.Data.Data {
		if bar.Open == 0 && bar.High == 0 && bar.Low == 0 && bar.Close == 0 {
			continue // CryptoCompare pads leading zero bars before the pair existed
		}
		volume := bar.VolumeTo
		if volume == 0 {
			volume = bar.VolumeFrom
		}
		candles = append(candles, models.Candle{
			Symbol:     req.Symbol,
			Timeframe:  req.Timeframe,
			Timestamp:  bar.Time,
			Open:       bar.Open,
			High:       bar.High,
			Low:        bar.Low,
			Close:      bar.Close,
			Volume:     volume,
			Providers:  []string{a.ID()},
			DataPoints: 1,
		})
	}
	// CryptoCompare already returns oldest-first.

	if len(candles) == 0 {
		return FetchResult{Source: a.ID(), Latency: latency, Outcome: OutcomeEmpty}
	}

	return FetchResult{Candles: candles, Source: a.ID(), Latency: latency, Outcome: OutcomeOK}
}
