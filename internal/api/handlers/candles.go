package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	apierrors "github.com/yourusername/datacollector/internal/api/errors"
	"github.com/yourusername/datacollector/internal/config"
	"github.com/yourusername/datacollector/internal/models"
	"github.com/yourusername/datacollector/internal/store"
)

// CandleHandler serves the read-side endpoints over the candle store. None
// of these are exercised by the backfill cycle itself, per spec.md §4.3.
type CandleHandler struct {
	store store.Store
	cycle config.CycleConfig
}

func NewCandleHandler(s store.Store, cycle config.CycleConfig) *CandleHandler {
	return &CandleHandler{store: s, cycle: cycle}
}

// GetCandles returns ordered candles for a (symbol, timeframe, range).
// @Summary Get candles
// @Tags Candles
// @Produce json
// @Param symbol query string true "Symbol, e.g. BTC"
// @Param timeframe query string true "Timeframe, e.g. 1h"
// @Param start query int false "Range start, unix seconds"
// @Param end query int false "Range end, unix seconds"
// @Router /api/v1/candles [get]
func (h *CandleHandler) GetCandles(c *fiber.Ctx) error {
	symbol := c.Query("symbol")
	tf := models.Timeframe(c.Query("timeframe"))
	if symbol == "" || !models.IsValidTimeframe(tf) {
		return apierrors.SendError(c, apierrors.BadRequest("symbol and a valid timeframe are required"))
	}

	now := time.Now().Unix()
	start := queryInt64(c, "start", 0)
	end := queryInt64(c, "end", now)

	candles, err := h.store.Get(c.Context(), symbol, tf, start, end)
	if err != nil {
		return apierrors.SendError(c, apierrors.DatabaseError(err.Error()))
	}

	return c.JSON(fiber.Map{
		"symbol":    symbol,
		"timeframe": tf,
		"count":     len(candles),
		"candles":   candles,
	})
}

// GetCoverage returns the materialized coverage record for a pair.
// @Summary Get coverage
// @Tags Candles
// @Produce json
// @Param symbol query string true "Symbol, e.g. BTC"
// @Param timeframe query string true "Timeframe, e.g. 1h"
// @Router /api/v1/coverage [get]
func (h *CandleHandler) GetCoverage(c *fiber.Ctx) error {
	symbol := c.Query("symbol")
	tf := models.Timeframe(c.Query("timeframe"))
	if symbol == "" || !models.IsValidTimeframe(tf) {
		return apierrors.SendError(c, apierrors.BadRequest("symbol and a valid timeframe are required"))
	}

	coverage, err := h.store.Coverage(c.Context(), symbol, tf)
	if err != nil {
		return apierrors.SendError(c, apierrors.DatabaseError(err.Error()))
	}
	if coverage == nil {
		return apierrors.SendError(c, apierrors.NoData(symbol+"-"+string(tf)))
	}

	return c.JSON(coverage)
}

// GetQuality returns gap diagnostics for a pair.
// @Summary Get data quality
// @Tags Candles
// @Produce json
// @Param symbol query string true "Symbol, e.g. BTC"
// @Param timeframe query string true "Timeframe, e.g. 1h"
// @Router /api/v1/quality [get]
func (h *CandleHandler) GetQuality(c *fiber.Ctx) error {
	symbol := c.Query("symbol")
	tf := models.Timeframe(c.Query("timeframe"))
	if symbol == "" || !models.IsValidTimeframe(tf) {
		return apierrors.SendError(c, apierrors.BadRequest("symbol and a valid timeframe are required"))
	}

	quality, err := h.store.DataQuality(c.Context(), symbol, tf)
	if err != nil {
		return apierrors.SendError(c, apierrors.DatabaseError(err.Error()))
	}

	return c.JSON(quality)
}

// GetProgress implements the progress() read-side operation: total
// candles, per-pair coverage, and whether every configured pair has met
// its target horizon.
// @Summary Get ingestion progress
// @Tags Candles
// @Produce json
// @Router /api/v1/progress [get]
func (h *CandleHandler) GetProgress(c *fiber.Ctx) error {
	records, err := h.store.ListCoverage(c.Context())
	if err != nil {
		return apierrors.SendError(c, apierrors.DatabaseError(err.Error()))
	}

	var totalCandles int64
	byPair := make(map[string]models.CoverageRecord, len(records))
	for _, rec := range records {
		totalCandles += rec.CandleCount
		byPair[rec.Symbol+"|"+string(rec.Timeframe)] = rec
	}

	isComplete := len(h.cycle.Symbols) > 0 && len(h.cycle.Timeframes) > 0
	now := time.Now()
	for _, symbol := range h.cycle.Symbols {
		for _, t := range h.cycle.Timeframes {
			rec, ok := byPair[symbol+"|"+string(t.Timeframe)]
			if !ok || !rec.IsComplete(now, t.TargetDays) {
				isComplete = false
			}
		}
	}

	return c.JSON(fiber.Map{
		"total_candles":    totalCandles,
		"per_pair_coverage": records,
		"is_complete":      isComplete,
		"last_updated":     now.Unix(),
	})
}

func queryInt64(c *fiber.Ctx, key string, defaultValue int64) int64 {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}
