package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourusername/datacollector/internal/models"
)

func newTestOKX(t *testing.T, handler http.HandlerFunc) (*OKX, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	a := NewOKX()
	a.BaseURL = server.URL
	return a, server.Close
}

func TestOKXFetchReversesNewestFirstToOldestFirst(t *testing.T) {
	body := `{"code":"0","msg":"","data":[
		["7200000","105","112","100","108","2.0","200","200","1"],
		["3600000","100","110","95","105","1.5","150","150","1"]
	]}`
	a, closeFn := newTestOKX(t, func(w http.ResponseWriter, r *http.Request) {
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
	if result.Candles[0].Timestamp != 3600 || result.Candles[1].Timestamp != 7200 {
		t.Fatalf("expected candles reordered oldest-first, got %d then %d", result.Candles[0].Timestamp, result.Candles[1].Timestamp)
	}
}

func TestOKXFetchErrorCode(t *testing.T) {
	a, closeFn := newTestOKX(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error, got %v", result.Outcome)
	}
}

func TestOKXFetchUnsupportedTimeframe(t *testing.T) {
	a := NewOKX()
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1d})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error for unsupported timeframe, got %v", result.Outcome)
	}
}

func TestOKXFetchEmptyResponse(t *testing.T) {
	a, closeFn := newTestOKX(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeEmpty {
		t.Fatalf("expected empty, got %v", result.Outcome)
	}
}
