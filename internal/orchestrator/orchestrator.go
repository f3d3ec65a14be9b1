// Package orchestrator drives sync runs across all tracked tokens.
// It coordinates: venue sync → trade persistence → chart generation → cursor advance
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"solana-price-history/internal/chart"
	"solana-price-history/internal/domain"
	"solana-price-history/internal/pricesync"
	"solana-price-history/internal/storage"
)

// DefaultConcurrency bounds how many tokens sync at once.
const DefaultConcurrency = 4

// Orchestrator runs the sync pipeline for every tracked token and persists
// the results. The cursor only advances after a token's trades and chart
// points are safely stored, so a crashed run repeats work instead of
// skipping it.
type Orchestrator struct {
	tokenStore  storage.TokenStore
	tradeStore  storage.TradeStore
	chartStore  storage.ChartPointStore
	syncer      *pricesync.Syncer
	concurrency int
	logger      *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	TokenStore storage.TokenStore
	TradeStore storage.TradeStore
	ChartStore storage.ChartPointStore
	Syncer     *pricesync.Syncer

	// Concurrency bounds parallel token syncs, defaults to DefaultConcurrency.
	Concurrency int
	Logger      *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		tokenStore:  opts.TokenStore,
		tradeStore:  opts.TradeStore,
		chartStore:  opts.ChartStore,
		syncer:      opts.Syncer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunResult contains results from one orchestrator pass.
type RunResult struct {
	TokensProcessed   int
	TradesStored      int
	PointsStored      int
	DuplicatesSkipped int
	BatchesFailed     int
	Errors            []string
}

// Run syncs every tracked token once. Per-token failures are collected in
// the result, not fatal: one broken token must not stall the rest.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	tokens, err := o.tokenStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked tokens: %w", err)
	}

	result := &RunResult{}
	if len(tokens) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(o.concurrency)

	for _, token := range tokens {
		token := token
		p.Go(func() {
			stored, points, dupes, failed, err := o.syncToken(ctx, token)

			mu.Lock()
			defer mu.Unlock()
			result.TokensProcessed++
			result.TradesStored += stored
			result.PointsStored += points
			result.DuplicatesSkipped += dupes
			result.BatchesFailed += failed
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("sync %s: %v", token.Mint, err))
			}
		})
	}
	p.Wait()

	o.logger.Printf("Sync pass completed: %d tokens, %d trades, %d points, %d duplicates skipped (%d errors)",
		result.TokensProcessed, result.TradesStored, result.PointsStored,
		result.DuplicatesSkipped, len(result.Errors))

	return result, nil
}

// syncToken runs one token end to end: sync, persist, advance cursor.
func (o *Orchestrator) syncToken(ctx context.Context, token *domain.TrackedToken) (stored, points, dupes, failed int, err error) {
	cursor := ""
	if token.LastSignature != nil {
		cursor = *token.LastSignature
	}

	res, err := o.syncer.SyncPriceHistory(ctx, token.Mint, cursor)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	failed = res.BatchesFailed

	// Cache the resolved venue; cheap to refresh every pass.
	venue := res.Venue
	if upsertErr := o.tokenStore.Upsert(ctx, &domain.TrackedToken{
		Mint:  token.Mint,
		Venue: &venue,
	}); upsertErr != nil {
		o.logger.Printf("Failed to refresh venue for %s: %v", token.Mint, upsertErr)
	}

	if len(res.Trades) == 0 {
		return 0, 0, 0, failed, nil
	}

	stored, dupes, storeErrs := o.storeTrades(ctx, res.Trades)
	points, pointErrs := o.storePoints(ctx, chart.BuildPoints(res.Trades))

	if storeErrs > 0 || pointErrs > 0 {
		return stored, points, dupes, failed,
			fmt.Errorf("%d trade and %d chart point inserts failed, cursor not advanced", storeErrs, pointErrs)
	}

	if res.NewestSignature != "" {
		if err := o.tokenStore.SetCursor(ctx, token.Mint, res.NewestSignature); err != nil {
			return stored, points, dupes, failed, fmt.Errorf("advance cursor: %w", err)
		}
	}

	return stored, points, dupes, failed, nil
}

// storeTrades bulk-inserts trades, degrading to row-by-row on a duplicate
// so re-runs over overlapping history skip what is already stored.
func (o *Orchestrator) storeTrades(ctx context.Context, trades []*domain.PricedTrade) (stored, dupes, errs int) {
	err := o.tradeStore.InsertBulk(ctx, trades)
	if err == nil {
		return len(trades), 0, 0
	}

	if !errors.Is(err, storage.ErrDuplicateKey) {
		o.logger.Printf("Error storing trade batch: %v", err)
		return 0, 0, len(trades)
	}

	// Insert one by one to find which are duplicates
	for _, trade := range trades {
		if err := o.tradeStore.Insert(ctx, trade); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				dupes++
			} else {
				errs++
			}
		} else {
			stored++
		}
	}
	return stored, dupes, errs
}

// storePoints bulk-inserts chart points, degrading to per-point inserts on a
// duplicate.
func (o *Orchestrator) storePoints(ctx context.Context, points []*domain.ChartPoint) (stored, errs int) {
	if len(points) == 0 {
		return 0, 0
	}

	err := o.chartStore.InsertBulk(ctx, points)
	if err == nil {
		return len(points), 0
	}

	if !errors.Is(err, storage.ErrDuplicateKey) {
		o.logger.Printf("Error storing chart point batch: %v", err)
		return 0, len(points)
	}

	for _, point := range points {
		if err := o.chartStore.InsertBulk(ctx, []*domain.ChartPoint{point}); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				errs++
			}
		} else {
			stored++
		}
	}
	return stored, errs
}
