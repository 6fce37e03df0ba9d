package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourusername/datacollector/internal/models"
)

func newTestCryptoCompare(t *testing.T, handler http.HandlerFunc) (*CryptoCompare, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	a := NewCryptoCompare("test-key")
	a.BaseURL = server.URL
	return a, server.Close
}

func TestCryptoCompareFetchOK(t *testing.T) {
	body := `{"Response":"Success","Data":{"Data":[
		{"time":3600,"open":100,"high":110,"low":95,"close":105,"volumefrom":1,"volumeto":100},
		{"time":7200,"open":105,"high":112,"low":100,"close":108,"volumefrom":2,"volumeto":200}
	]}}`
	a, closeFn := newTestCryptoCompare(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h, Limit: 10})
	if result.Outcome != OutcomeOK {
		t.Fatalf("expected OK, got %v (%s)", result.Outcome, result.Reason)
	}
	if len(result.Candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(result.Candles))
	}
	if result.Candles[0].Volume != 100 {
		t.Errorf("expected volumeto preferred over volumefrom, got %v", result.Candles[0].Volume)
	}
}

func TestCryptoCompareFetchSkipsZeroPaddedBars(t *testing.T) {
	body := `{"Response":"Success","Data":{"Data":[
		{"time":3600,"open":0,"high":0,"low":0,"close":0,"volumefrom":0,"volumeto":0},
		{"time":7200,"open":105,"high":112,"low":100,"close":108,"volumefrom":2,"volumeto":200}
	]}}`
	a, closeFn := newTestCryptoCompare(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if len(result.Candles) != 1 {
		t.Fatalf("expected zero-padded leading bar to be dropped, got %d candles", len(result.Candles))
	}
}

func TestCryptoCompareFetchMissingAPIKeyIsTerminal(t *testing.T) {
	a := NewCryptoCompare("")
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error for missing credential, got %v", result.Outcome)
	}
}

func TestCryptoCompareFetchRateLimited(t *testing.T) {
	a, closeFn := newTestCryptoCompare(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeRateLimited {
		t.Fatalf("expected rate_limited, got %v", result.Outcome)
	}
}

func TestCryptoCompareFetchUnsupportedTimeframe(t *testing.T) {
	a := NewCryptoCompare("test-key")
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe5m})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error for unsupported timeframe, got %v", result.Outcome)
	}
}

func TestCryptoCompareFetchEmptyResponse(t *testing.T) {
	a, closeFn := newTestCryptoCompare(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"Success","Data":{"Data":[]}}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeEmpty {
		t.Fatalf("expected empty, got %v", result.Outcome)
	}
}
