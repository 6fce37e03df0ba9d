package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourusername/datacollector/internal/models"
)

func newTestBinance(t *testing.T, handler http.HandlerFunc) (*Binance, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	a := NewBinance()
	a.BaseURL = server.URL
	return a, server.Close
}

func TestBinanceFetchOK(t *testing.T) {
	body := `[
		[3600000,"100.0","110.0","95.0","105.0","1.5",3659999,"0","0",0,"0","0"],
		[7200000,"105.0","112.0","100.0","108.0","2.0",7259999,"0","0",0,"0","0"]
	]`
	a, closeFn := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeOK {
		t.Fatalf("expected OK, got %v (%s)", result.Outcome, result.Reason)
	}
	if len(result.Candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(result.Candles))
	}
	if result.Candles[0].Timestamp != 3600 {
		t.Errorf("expected ms-to-seconds conversion, got %d", result.Candles[0].Timestamp)
	}
}

func TestBinanceFetchErrorEnvelope(t *testing.T) {
	a, closeFn := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error, got %v", result.Outcome)
	}
	if result.Reason != "Invalid symbol." {
		t.Errorf("expected envelope message surfaced as reason, got %q", result.Reason)
	}
}

func TestBinanceFetchUnsupportedTimeframe(t *testing.T) {
	a := NewBinance()
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1d})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error for unsupported timeframe, got %v", result.Outcome)
	}
}

func TestBinanceFetchServerErrorIsRateLimited(t *testing.T) {
	a, closeFn := newTestBinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeRateLimited {
		t.Fatalf("expected rate_limited, got %v", result.Outcome)
	}
}
