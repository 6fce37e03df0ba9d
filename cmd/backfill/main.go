// Command backfill runs exactly one bounded ingestion cycle and exits.
// It is meant to be invoked by an external cron scheduler rather than run
// as a long-lived process: the scheduler disables the cron once progress()
// reports is_complete, per spec.md §1.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/yourusername/datacollector/internal/config"
	"github.com/yourusername/datacollector/internal/fetcher"
	"github.com/yourusername/datacollector/internal/orchestrator"
	"github.com/yourusername/datacollector/internal/planner"
	"github.com/yourusername/datacollector/internal/providers"
	"github.com/yourusername/datacollector/internal/repository"
	"github.com/yourusername/datacollector/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := repository.Connect(cfg.Database.URI, cfg.Database.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	candleStore, err := store.NewMongoStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize candle store: %v", err)
	}

	registry := providers.NewRegistry(
		providers.NewCryptoCompare(cfg.Providers.CryptoCompareAPIKey),
		providers.NewKraken(),
		providers.NewBinance(),
		providers.NewCoinbase(),
		providers.NewOKX(),
	)

	orch := orchestrator.New(candleStore, registry, planner.New(registry), fetcher.New(), fetcher.DefaultPolicy())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Cycle.CycleBudgetMs+10000)*time.Millisecond)
	defer cancel()

	report, err := orch.RunCycle(ctx, cfg.Cycle)
	if err != nil {
		log.Fatalf("Cycle aborted: %v", err)
	}

	encoded, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("Cycle report:\n%s", encoded)

	if report.IsComplete {
		log.Println("All configured pairs have reached their target horizon")
	}

	os.Exit(0)
}
