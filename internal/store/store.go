// Package store persists candles with idempotent, collating merge
// semantics and materializes the coverage record each (symbol, timeframe)
// pair needs for O(1) backfill planning. It is the chunked-storage idiom
// from the teacher's OHLCVRepository, generalized from a single-provider
// overwrite into a multi-provider collation.
package store

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourusername/datacollector/internal/models"
	"github.com/yourusername/datacollector/internal/repository"
)

// MergeResult reports what a single Merge call did. Errors holds
// diagnostics for candles rejected at the OHLC-invariant check (spec.md
// §4.3 constraint 1); rejections are counted separately from Skipped,
// which only tracks collated-not-inserted rows.
type MergeResult struct {
	Inserted int
	Skipped  int
	Errors   []string
}

// Store is the persistence contract the orchestrator drives each cycle.
type Store interface {
	Merge(ctx context.Context, symbol string, timeframe models.Timeframe, candles []models.Candle) (MergeResult, error)
	Coverage(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.CoverageRecord, error)
	Get(ctx context.Context, symbol string, timeframe models.Timeframe, start, end int64) ([]models.Candle, error)
	DataQuality(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.DataQuality, error)
	ListCoverage(ctx context.Context) ([]models.CoverageRecord, error)
}

// candleDoc is the chunked on-disk representation: one document per
// (symbol, timeframe, year_month), mirroring the teacher's OHLCVChunk
// layout so the same 16MB-document-limit avoidance applies here.
type candleDoc struct {
	Symbol       string          `bson:"symbol"`
	Timeframe    string          `bson:"timeframe"`
	YearMonth    string          `bson:"year_month"`
	StartTime    int64           `bson:"start_time"`
	EndTime      int64           `bson:"end_time"`
	CandlesCount int             `bson:"candles_count"`
	Candles      []models.Candle `bson:"candles"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

type coverageDoc struct {
	Symbol          string    `bson:"symbol"`
	Timeframe       string    `bson:"timeframe"`
	OldestTimestamp int64     `bson:"oldest_timestamp"`
	NewestTimestamp int64     `bson:"newest_timestamp"`
	CandleCount     int64     `bson:"candle_count"`
	LastUpdated     time.Time `bson:"last_updated"`
}

// MongoStore is the production Store backed by MongoDB.
type MongoStore struct {
	client   *mongo.Client
	candles  *mongo.Collection
	coverage *mongo.Collection
	locks    *pairLocks
}

// NewMongoStore creates indexes the way the teacher's NewOHLCVRepository
// does and returns a ready-to-use store.
func NewMongoStore(db *repository.Database) (*MongoStore, error) {
	candles := db.GetCollection("candles")
	coverage := db.GetCollection("coverage")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chunkIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "symbol", Value: 1},
			{Key: "timeframe", Value: 1},
			{Key: "year_month", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := candles.Indexes().CreateOne(ctx, chunkIndex); err != nil {
		return nil, fmt.Errorf("create candles chunk index: %w", err)
	}

	rangeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "symbol", Value: 1},
			{Key: "timeframe", Value: 1},
			{Key: "start_time", Value: -1},
		},
	}
	if _, err := candles.Indexes().CreateOne(ctx, rangeIndex); err != nil {
		return nil, fmt.Errorf("create candles range index: %w", err)
	}

	coverageIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "symbol", Value: 1},
			{Key: "timeframe", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coverage.Indexes().CreateOne(ctx, coverageIndex); err != nil {
		return nil, fmt.Errorf("create coverage index: %w", err)
	}

	return &MongoStore{client: db.Client, candles: candles, coverage: coverage, locks: newPairLocks()}, nil
}

// Merge inserts each incoming candle under its (symbol, timeframe,
// timestamp) key, or collates it into the existing row when one is
// already present at that timestamp, per the median/mean/variance rule.
// An existing row that already lists every provider of the incoming candle
// is kept as it is and counted as skipped.
// Calls on the same pair serialize; calls on distinct pairs proceed
// concurrently. Candles failing the OHLC invariant check (models.Candle
// Validate) are rejected into MergeResult.Errors rather than written,
// per spec.md §4.3 constraint 1. The whole batch commits as a single
// Mongo transaction, all-or-nothing, per spec.md §4.3 rule 4.
func (s *MongoStore) Merge(ctx context.Context, symbol string, timeframe models.Timeframe, incoming []models.Candle) (MergeResult, error) {
	if len(incoming) == 0 {
		return MergeResult{}, nil
	}

	unlock := s.locks.lock(symbol, timeframe)
	defer unlock()

	var rejected []string
	valid := make([]models.Candle, 0, len(incoming))
	for _, c := range incoming {
		if err := c.Validate(); err != nil {
			rejected = append(rejected, fmt.Sprintf("%s-%s@%d: %v", c.Symbol, c.Timeframe, c.Timestamp, err))
			continue
		}
		valid = append(valid, c)
	}

	if len(valid) == 0 {
		return MergeResult{Errors: rejected}, nil
	}

	byMonth := make(map[string][]models.Candle)
	for _, c := range valid {
		ym := yearMonth(c.Timestamp)
		byMonth[ym] = append(byMonth[ym], c)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return MergeResult{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result := MergeResult{Errors: rejected}
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		result.Inserted, result.Skipped = 0, 0
		result.Errors = append([]string{}, rejected...)

		for ym, batch := range byMonth {
			ins, skip, errs, err := s.mergeChunk(sessCtx, symbol, timeframe, ym, batch)
			if err != nil {
				return nil, fmt.Errorf("merge chunk %s: %w", ym, err)
			}
			result.Inserted += ins
			result.Skipped += skip
			result.Errors = append(result.Errors, errs...)
		}

		if err := s.refreshCoverage(sessCtx, symbol, timeframe); err != nil {
			return nil, fmt.Errorf("refresh coverage: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("transactional merge: %w", err)
	}

	log.Printf("[STORE] %s-%s merged %d candles: %d inserted, %d collated, %d rejected", symbol, timeframe, len(incoming), result.Inserted, result.Skipped, len(result.Errors))
	return result, nil
}

func (s *MongoStore) mergeChunk(ctx context.Context, symbol string, timeframe models.Timeframe, ym string, incoming []models.Candle) (inserted, skipped int, rejected []string, err error) {
	filter := bson.M{"symbol": symbol, "timeframe": string(timeframe), "year_month": ym}

	var existing candleDoc
	err = s.candles.FindOne(ctx, filter).Decode(&existing)
	switch err {
	case mongo.ErrNoDocuments:
		sort.Slice(incoming, func(i, j int) bool { return incoming[i].Timestamp < incoming[j].Timestamp })
		doc := candleDoc{
			Symbol:       symbol,
			Timeframe:    string(timeframe),
			YearMonth:    ym,
			StartTime:    incoming[0].Timestamp,
			EndTime:      incoming[len(incoming)-1].Timestamp,
			CandlesCount: len(incoming),
			Candles:      incoming,
			UpdatedAt:    time.Now(),
		}
		if _, insErr := s.candles.InsertOne(ctx, doc); insErr != nil {
			return 0, 0, nil, insErr
		}
		return len(incoming), 0, nil, nil
	case nil:
		// fall through to the merge path below
	default:
		return 0, 0, nil, err
	}

	byTimestamp := make(map[int64]models.Candle, len(existing.Candles))
	for _, c := range existing.Candles {
		byTimestamp[c.Timestamp] = c
	}

	for _, c := range incoming {
		if prior, ok := byTimestamp[c.Timestamp]; ok {
			// A row that already carries every provider of c is left
			// unchanged, so re-merging the same candles is a no-op.
			if len(dedupe(append(append([]string{}, prior.Providers...), c.Providers...))) == len(dedupe(prior.Providers)) {
				skipped++
				continue
			}
			merged := collate(prior, c)
			if verr := merged.Validate(); verr != nil {
				rejected = append(rejected, fmt.Sprintf("%s-%s@%d: collated row rejected: %v", c.Symbol, c.Timeframe, c.Timestamp, verr))
				continue
			}
			byTimestamp[c.Timestamp] = merged
			skipped++
		} else {
			byTimestamp[c.Timestamp] = c
			inserted++
		}
	}

	merged := make([]models.Candle, 0, len(byTimestamp))
	for _, c := range byTimestamp {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })

	update := bson.M{"$set": bson.M{
		"candles":       merged,
		"candles_count": len(merged),
		"start_time":    merged[0].Timestamp,
		"end_time":      merged[len(merged)-1].Timestamp,
		"updated_at":    time.Now(),
	}}
	if _, updErr := s.candles.UpdateOne(ctx, filter, update); updErr != nil {
		return inserted, skipped, rejected, updErr
	}

	return inserted, skipped, rejected, nil
}

// collate folds a new observation of the same (symbol, timeframe,
// timestamp) candle into the prior one, per spec.md §4.3 rule 3: close
// takes the median of the prior row's close and the incoming close (their
// mean), and volume the mean of the two volumes. Individual contributor
// closes are not retained, so from the third contributor on the close is
// not the median of every contributing close. open keeps
// the earliest contributor's value, high/low widen to the max/min across
// contributors, and variance tracks dispersion across providers via
// coefficient of variation on the close price. prior is always the
// earlier-stored side of this incremental merge, so prior.Open is the
// earliest contributor's open.
func collate(prior, incoming models.Candle) models.Candle {
	closes := []float64{}
	for i := 0; i < prior.DataPoints; i++ {
		closes = append(closes, prior.Close)
	}
	closes = append(closes, incoming.Close)

	open := prior.Open
	high := math.Max(prior.High, incoming.High)
	low := math.Min(prior.Low, incoming.Low)
	closeV, _ := stats.Median(stats.Float64Data{prior.Close, incoming.Close})
	volume, _ := stats.Mean(stats.Float64Data{prior.Volume, incoming.Volume})

	variance := prior.Variance
	if stddev, err := stats.StandardDeviation(stats.Float64Data(closes)); err == nil && closeV != 0 {
		variance = stddev / closeV
	}

	providers := append(append([]string{}, prior.Providers...), incoming.Providers...)
	providers = dedupe(providers)

	return models.Candle{
		Symbol:     prior.Symbol,
		Timeframe:  prior.Timeframe,
		Timestamp:  prior.Timestamp,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closeV,
		Volume:     volume,
		Providers:  providers,
		DataPoints: prior.DataPoints + 1,
		Variance:   variance,
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// refreshCoverage recomputes the coverage record from the current chunk
// set. Cheap relative to a full candle scan since it reads chunk
// boundaries, not every candle.
func (s *MongoStore) refreshCoverage(ctx context.Context, symbol string, timeframe models.Timeframe) error {
	filter := bson.M{"symbol": symbol, "timeframe": string(timeframe)}
	opts := options.Find().SetProjection(bson.M{"start_time": 1, "end_time": 1, "candles_count": 1})

	cursor, err := s.candles.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var chunks []candleDoc
	if err := cursor.All(ctx, &chunks); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	rec := coverageDoc{Symbol: symbol, Timeframe: string(timeframe), LastUpdated: time.Now()}
	rec.OldestTimestamp = chunks[0].StartTime
	for _, c := range chunks {
		if c.StartTime < rec.OldestTimestamp {
			rec.OldestTimestamp = c.StartTime
		}
		if c.EndTime > rec.NewestTimestamp {
			rec.NewestTimestamp = c.EndTime
		}
		rec.CandleCount += int64(c.CandlesCount)
	}

	_, err = s.coverage.UpdateOne(ctx, bson.M{"symbol": symbol, "timeframe": string(timeframe)},
		bson.M{"$set": rec}, options.Update().SetUpsert(true))
	return err
}

// Coverage returns the materialized coverage record for a pair, or nil if
// nothing has been merged yet.
func (s *MongoStore) Coverage(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.CoverageRecord, error) {
	var doc coverageDoc
	err := s.coverage.FindOne(ctx, bson.M{"symbol": symbol, "timeframe": string(timeframe)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.CoverageRecord{
		Symbol:          symbol,
		Timeframe:       timeframe,
		OldestTimestamp: doc.OldestTimestamp,
		NewestTimestamp: doc.NewestTimestamp,
		CandleCount:     doc.CandleCount,
		LastUpdated:     doc.LastUpdated,
	}, nil
}

// ListCoverage returns every materialized coverage record, for the
// progress/get_coverage read-side operations (spec.md §6.2).
func (s *MongoStore) ListCoverage(ctx context.Context) ([]models.CoverageRecord, error) {
	cursor, err := s.coverage.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []coverageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]models.CoverageRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.CoverageRecord{
			Symbol:          doc.Symbol,
			Timeframe:       models.Timeframe(doc.Timeframe),
			OldestTimestamp: doc.OldestTimestamp,
			NewestTimestamp: doc.NewestTimestamp,
			CandleCount:     doc.CandleCount,
			LastUpdated:     doc.LastUpdated,
		})
	}
	return out, nil
}

// Get returns ordered candles in [start, end] for read-side collaborators.
// Not exercised by the core backfill cycle.
func (s *MongoStore) Get(ctx context.Context, symbol string, timeframe models.Timeframe, start, end int64) ([]models.Candle, error) {
	filter := bson.M{
		"symbol":    symbol,
		"timeframe": string(timeframe),
		"end_time":  bson.M{"$gte": start},
		"start_time": bson.M{"$lte": end},
	}
	cursor, err := s.candles.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chunks []candleDoc
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, err
	}

	var out []models.Candle
	for _, chunk := range chunks {
		for _, c := range chunk.Candles {
			if c.Timestamp >= start && c.Timestamp <= end {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// DataQuality reports gap diagnostics for a pair, grounded on the
// teacher's AnalyzeDataQuality/detectGaps logic, answering the optional
// quality-scoring open question.
func (s *MongoStore) DataQuality(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.DataQuality, error) {
	secs, ok := models.SecondsFor(timeframe)
	if !ok {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}

	candles, err := s.Get(ctx, symbol, timeframe, 0, time.Now().Unix())
	if err != nil {
		return nil, err
	}

	quality := &models.DataQuality{Symbol: symbol, Timeframe: timeframe}
	if len(candles) < 2 {
		return quality, nil
	}

	expectedGap := secs
	tolerance := expectedGap + expectedGap/10

	for i := 1; i < len(candles); i++ {
		gap := candles[i].Timestamp - candles[i-1].Timestamp
		if gap > tolerance {
			missing := int(gap/expectedGap) - 1
			if missing > 0 {
				quality.Gaps = append(quality.Gaps, models.DataGap{
					StartTime:      time.Unix(candles[i-1].Timestamp, 0).UTC(),
					EndTime:        time.Unix(candles[i].Timestamp, 0).UTC(),
					MissingCandles: missing,
				})
			}
		}
	}

	return quality, nil
}

func yearMonth(unixSeconds int64) string {
	t := time.Unix(unixSeconds, 0).UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
