package models

import (
	"testing"
	"time"
)

func TestCandleValidate(t *testing.T) {
	tests := []struct {
		name     string
		candle   Candle
		hasError bool
	}{
		{
			name: "valid hourly candle",
			candle: Candle{
				Symbol: "BTC", Timeframe: Timeframe1h, Timestamp: 3600,
				Open: 100, High: 110, Low: 95, Close: 105, Volume: 10,
			},
			hasError: false,
		},
		{
			name: "misaligned timestamp",
			candle: Candle{
				Symbol: "BTC", Timeframe: Timeframe1h, Timestamp: 3601,
				Open: 100, High: 110, Low: 95, Close: 105, Volume: 10,
			},
			hasError: true,
		},
		{
			name: "low above high",
			candle: Candle{
				Symbol: "BTC", Timeframe: Timeframe1h, Timestamp: 3600,
				Open: 100, High: 90, Low: 95, Close: 105, Volume: 10,
			},
			hasError: true,
		},
		{
			name: "low above open",
			candle: Candle{
				Symbol: "BTC", Timeframe: Timeframe1h, Timestamp: 3600,
				Open: 100, High: 110, Low: 101, Close: 105, Volume: 10,
			},
			hasError: true,
		},
		{
			name: "negative volume",
			candle: Candle{
				Symbol: "BTC", Timeframe: Timeframe1h, Timestamp: 3600,
				Open: 100, High: 110, Low: 95, Close: 105, Volume: -1,
			},
			hasError: true,
		},
		{
			name: "unknown timeframe",
			candle: Candle{
				Symbol: "BTC", Timeframe: "2h", Timestamp: 3600,
				Open: 100, High: 110, Low: 95, Close: 105, Volume: 10,
			},
			hasError: true,
		},
		{
			name: "empty symbol",
			candle: Candle{
				Symbol: "", Timeframe: Timeframe1h, Timestamp: 3600,
				Open: 100, High: 110, Low: 95, Close: 105, Volume: 10,
			},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.candle.Validate()
			if tt.hasError && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCoverageRecordIsComplete(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-07-31T00:00:00Z")
	if err != nil {
		t.Fatalf("bad fixture time: %v", err)
	}

	rec := CoverageRecord{
		Symbol: "BTC", Timeframe: Timeframe1h,
		OldestTimestamp: now.Unix() - 800*86400,
		NewestTimestamp: now.Unix(),
		CandleCount:     800 * 24,
	}

	if !rec.IsComplete(now, 730) {
		t.Error("expected 800 days of coverage to satisfy a 730 day target")
	}
	if rec.IsComplete(now, 900) {
		t.Error("did not expect 800 days of coverage to satisfy a 900 day target")
	}
}

func TestCoverageRecordYearsOfData(t *testing.T) {
	rec := CoverageRecord{
		OldestTimestamp: 0,
		NewestTimestamp: 365 * 86400,
		CandleCount:     8760,
	}
	years := rec.YearsOfData()
	if years < 0.99 || years > 1.01 {
		t.Errorf("expected ~1.0 years, got %f", years)
	}
}

func TestIsValidTimeframe(t *testing.T) {
	if !IsValidTimeframe(Timeframe1m) {
		t.Error("expected 1m to be valid")
	}
	if IsValidTimeframe("3h") {
		t.Error("did not expect 3h to be valid")
	}
}
