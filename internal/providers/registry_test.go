package providers

import (
	"testing"

	"github.com/yourusername/datacollector/internal/models"
)

func TestRegistrySupportingOrdersByPriorityThenID(t *testing.T) {
	reg := NewRegistry(NewKraken(), NewCryptoCompare("key"), NewBinance(), NewCoinbase(), NewOKX())

	supporting := reg.Supporting(models.Timeframe1h)
	if len(supporting) != 5 {
		t.Fatalf("expected all 5 adapters to support 1h, got %d", len(supporting))
	}
	if supporting[0].ID() != "cryptocompare" {
		t.Fatalf("expected cryptocompare first by priority, got %s", supporting[0].ID())
	}
	if supporting[len(supporting)-1].ID() != "okx" {
		t.Fatalf("expected okx last by priority, got %s", supporting[len(supporting)-1].ID())
	}
}

func TestRegistrySupportingFiltersByTimeframe(t *testing.T) {
	reg := NewRegistry(NewKraken(), NewCoinbase())

	supporting := reg.Supporting(models.Timeframe1m)
	if len(supporting) != 1 || supporting[0].ID() != "coinbase" {
		t.Fatalf("expected only coinbase to support 1m, got %v", supporting)
	}
}

func TestRegistryByID(t *testing.T) {
	reg := NewRegistry(NewBinance())

	if _, ok := reg.ByID("binance"); !ok {
		t.Fatal("expected binance to be found")
	}
	if _, ok := reg.ByID("nonexistent"); ok {
		t.Fatal("expected nonexistent adapter lookup to fail")
	}
}
