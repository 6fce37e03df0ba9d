// Package orchestrator drives one bounded backfill cycle: for every
// configured (symbol, timeframe) pair it asks the planner for the next
// window, fetches it through a provider, and merges the result into the
// store, all under a soft wall-clock budget and a hard call-count cap.
// Generalizes the teacher's JobScheduler/JobExecutor perpetual ticker loop
// into a single re-entrant invocation suited to cron-driven serverless
// execution, per the execution model this system runs under.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/datacollector/internal/config"
	"github.com/yourusername/datacollector/internal/fetcher"
	"github.com/yourusername/datacollector/internal/models"
	"github.com/yourusername/datacollector/internal/planner"
	"github.com/yourusername/datacollector/internal/providers"
	"github.com/yourusername/datacollector/internal/store"
)

// PairStats is the per-(symbol, timeframe) slice of a CycleReport.
type PairStats struct {
	Symbol          string
	Timeframe       models.Timeframe
	Inserted        int
	Skipped         int
	APICalls        int
	RateLimitEvents int
	Errors          []string
	Complete        bool
	Exhausted       bool
}

// CycleReport is the orchestrator's return value for one run_cycle call.
type CycleReport struct {
	RunID              string
	StartedAt          time.Time
	Duration           time.Duration
	Pairs              []PairStats
	TotalInserted      int
	TotalSkipped       int
	TotalAPICalls      int
	TotalRateLimitEvents int
	IsComplete         bool
	BudgetExceeded     bool
}

// Orchestrator wires the planner, fetcher, and store together.
type Orchestrator struct {
	store    store.Store
	planner  *planner.Planner
	fetcher  *fetcher.Fetcher
	registry *providers.Registry
	policy   fetcher.Policy
}

func New(st store.Store, reg *providers.Registry, pl *planner.Planner, f *fetcher.Fetcher, policy fetcher.Policy) *Orchestrator {
	return &Orchestrator{store: st, planner: pl, fetcher: f, registry: reg, policy: policy}
}

type task struct {
	symbol     string
	timeframe  models.Timeframe
	targetDays int
	adapter    providers.Adapter
	req        *providers.FetchRequest
	coverage   *models.CoverageRecord
}

// RunCycle implements spec.md §4.5. It validates configuration first
// (fatal, abort-before-any-work errors), then plans every configured pair,
// groups the resulting work by provider so that distinct providers fetch
// concurrently while same-provider calls stay serialized, and finally
// re-evaluates global completeness.
func (o *Orchestrator) RunCycle(ctx context.Context, cfg config.CycleConfig) (*CycleReport, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("configuration error: empty symbol list")
	}
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("configuration error: empty timeframe list")
	}

	report := &CycleReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	deadline := report.StartedAt.Add(time.Duration(cfg.CycleBudgetMs) * time.Millisecond)

	var callCount int
	var callMu sync.Mutex
	tryReserveCall := func() bool {
		callMu.Lock()
		defer callMu.Unlock()
		if callCount >= cfg.MaxCallsPerCycle {
			return false
		}
		callCount++
		return true
	}

	byProvider := make(map[string][]*task)
	stats := make(map[string]*PairStats)

	now := time.Now().Unix()
	for _, symbol := range cfg.Symbols {
		for _, tft := range cfg.Timeframes {
			key := symbol + "|" + string(tft.Timeframe)
			ps := &PairStats{Symbol: symbol, Timeframe: tft.Timeframe}
			stats[key] = ps

			coverage, err := o.store.Coverage(ctx, symbol, tft.Timeframe)
			if err != nil {
				ps.Errors = append(ps.Errors, err.Error())
				continue
			}

			adapter, req, err := o.planner.NextWindow(symbol, tft.Timeframe, coverage, tft.TargetDays, now)
			if err != nil {
				ps.Errors = append(ps.Errors, err.Error())
				continue
			}
			if req == nil {
				ps.Complete = true
				continue
			}

			t := &task{symbol: symbol, timeframe: tft.Timeframe, targetDays: tft.TargetDays, adapter: adapter, req: req, coverage: coverage}
			byProvider[adapter.ID()] = append(byProvider[adapter.ID()], t)
		}
	}

	var statsMu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)

	for providerID, tasks := range byProvider {
		providerID, tasks := providerID, tasks
		group.Go(func() error {
			for _, t := range tasks {
				if time.Now().After(deadline) {
					statsMu.Lock()
					report.BudgetExceeded = true
					statsMu.Unlock()
					return nil
				}
				if !tryReserveCall() {
					statsMu.Lock()
					report.BudgetExceeded = true
					statsMu.Unlock()
					return nil
				}

				result := o.fetcher.Invoke(gctx, t.adapter, *t.req, o.policy)

				key := t.symbol + "|" + string(t.timeframe)
				statsMu.Lock()
				ps := stats[key]
				ps.APICalls++
				ps.RateLimitEvents += result.RateLimitEvents
				statsMu.Unlock()

				switch result.Outcome {
				case providers.OutcomeRateLimited, providers.OutcomeTerminalError:
					statsMu.Lock()
					ps.Errors = append(ps.Errors, fmt.Sprintf("%s: %s", providerID, result.Reason))
					statsMu.Unlock()
					continue
				case providers.OutcomeEmpty:
					if t.coverage != nil {
						statsMu.Lock()
						ps.Exhausted = true
						statsMu.Unlock()
					}
					continue
				}

				candles := result.Candles
				if t.coverage != nil {
					candles = filterOlderThan(candles, t.coverage.OldestTimestamp)
				}

				mergeResult, err := o.store.Merge(gctx, t.symbol, t.timeframe, candles)
				if err != nil {
					statsMu.Lock()
					ps.Errors = append(ps.Errors, fmt.Sprintf("store: %v", err))
					statsMu.Unlock()
					continue
				}

				statsMu.Lock()
				ps.Inserted += mergeResult.Inserted
				ps.Skipped += mergeResult.Skipped
				ps.Errors = append(ps.Errors, mergeResult.Errors...)
				statsMu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	report.IsComplete = true
	for _, symbol := range cfg.Symbols {
		for _, tft := range cfg.Timeframes {
			key := symbol + "|" + string(tft.Timeframe)
			ps := stats[key]
			report.Pairs = append(report.Pairs, *ps)
			report.TotalInserted += ps.Inserted
			report.TotalSkipped += ps.Skipped
			report.TotalAPICalls += ps.APICalls
			report.TotalRateLimitEvents += ps.RateLimitEvents

			coverage, err := o.store.Coverage(ctx, symbol, tft.Timeframe)
			if err != nil || coverage == nil {
				report.IsComplete = false
				continue
			}
			if !coverage.IsComplete(time.Now(), tft.TargetDays) {
				report.IsComplete = false
			}
		}
	}

	report.Duration = time.Since(report.StartedAt)
	log.Printf("[ORCHESTRATOR] cycle %s done in %v: %d inserted, %d skipped, %d api calls, %d rate-limit events, complete=%v",
		report.RunID, report.Duration, report.TotalInserted, report.TotalSkipped, report.TotalAPICalls, report.TotalRateLimitEvents, report.IsComplete)

	return report, nil
}

func filterOlderThan(candles []models.Candle, boundary int64) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp < boundary {
			out = append(out, c)
		}
	}
	return out
}
