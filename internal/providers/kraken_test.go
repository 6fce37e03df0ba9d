package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourusername/datacollector/internal/models"
)

func newTestKraken(t *testing.T, handler http.HandlerFunc) (*Kraken, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	a := NewKraken()
	a.BaseURL = server.URL
	return a, server.Close
}

func TestKrakenFetchOK(t *testing.T) {
	body := `{"error":[],"result":{"XXBTZUSD":[
		[3600,"100.0","110.0","95.0","105.0","102.0","1.5",10],
		[7200,"105.0","112.0","100.0","108.0","106.0","2.0",12]
	]}}`
	a, closeFn := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
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
	if result.Candles[0].Close != 105.0 {
		t.Errorf("expected decimal-string close parsed to 105.0, got %v", result.Candles[0].Close)
	}
}

func TestKrakenFetchRejectsToTimestampPaging(t *testing.T) {
	a := NewKraken()
	ts := int64(1000)
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h, ToTimestamp: &ts})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error, got %v", result.Outcome)
	}
}

func TestKrakenFetchUnknownSymbol(t *testing.T) {
	a := NewKraken()
	result := a.Fetch(context.Background(), FetchRequest{Symbol: "NOPE", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error for unmapped symbol, got %v", result.Outcome)
	}
}

func TestKrakenFetchAPIError(t *testing.T) {
	a, closeFn := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":{}}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeTerminalError {
		t.Fatalf("expected terminal_error, got %v", result.Outcome)
	}
}

func TestKrakenFetchMissingResultKeyIsEmpty(t *testing.T) {
	a, closeFn := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{}}`))
	})
	defer closeFn()

	result := a.Fetch(context.Background(), FetchRequest{Symbol: "BTC", Timeframe: models.Timeframe1h})
	if result.Outcome != OutcomeEmpty {
		t.Fatalf("expected empty, got %v", result.Outcome)
	}
}
