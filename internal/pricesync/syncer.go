package pricesync

import (
	"context"
	"fmt"
	"log"
	"sort"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/venue"
)

// Syncer runs the full price-history pipeline for one mint: venue
// resolution, signature history walk, batched transaction fetch, and
// per-transaction price derivation.
type Syncer struct {
	resolver  *venue.Resolver
	walker    *HistoryWalker
	fetcher   *BatchFetcher
	deriver   *PriceDeriver
	batchSize int
	pacer     Pacer
	observer  Observer
	logger    *log.Logger
}

// SyncerOptions configures a Syncer. Resolver, Walker and Fetcher are
// required; the rest default.
type SyncerOptions struct {
	Resolver  *venue.Resolver
	Walker    *HistoryWalker
	Fetcher   *BatchFetcher
	Deriver   *PriceDeriver
	BatchSize int
	Pacer     Pacer // inter-batch pause, defaults to DefaultBatchPause
	Observer  Observer
	Logger    *log.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(opts SyncerOptions) *Syncer {
	deriver := opts.Deriver
	if deriver == nil {
		deriver = NewPriceDeriver()
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pacer := opts.Pacer
	if pacer == nil {
		pacer = NewIntervalPacer(DefaultBatchPause)
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Syncer{
		resolver:  opts.Resolver,
		walker:    opts.Walker,
		fetcher:   opts.Fetcher,
		deriver:   deriver,
		batchSize: batchSize,
		pacer:     pacer,
		observer:  observer,
		logger:    logger,
	}
}

// SyncResult is one sync run's output.
type SyncResult struct {
	// Venue is the address whose history was walked.
	Venue string
	// VenueFallback is true when the bonding-curve derivation was used.
	VenueFallback bool
	// Trades are the derived trades in chronological order, oldest first.
	Trades []*domain.PricedTrade
	// NewestSignature is the most recent signature seen this run. Persist it
	// as the next run's cursor only after the trades are safely stored.
	NewestSignature string
	// SignaturesSeen counts successful signatures forwarded to fetching.
	SignaturesSeen int
	// BatchesFailed counts batches dropped after retry exhaustion.
	BatchesFailed int
}

// SyncPriceHistory derives the priced trade history for mint, walking
// backward from the present until cursor (exclusive) or until history is
// exhausted. An empty cursor means a full walk. Repeated runs with the same
// cursor produce the same trades.
//
// Exhausted batches are skipped, not fatal: a run with failed batches still
// returns every trade the surviving batches produced.
func (s *Syncer) SyncPriceHistory(ctx context.Context, mint, cursor string) (*SyncResult, error) {
	resolved, fallback, err := s.resolver.Resolve(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("resolve venue for %s: %w", mint, err)
	}
	s.observer.VenueResolved(mint, resolved, fallback)

	records, walkErr := s.walker.Walk(ctx, resolved, cursor)
	if walkErr != nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("walk history for %s: %w", mint, walkErr)
		}
		// Partial history is still a prefix of the newest signatures, so the
		// trades it yields are valid. The cursor must not advance past what
		// was actually processed, and records are newest-first, so the
		// partial set anchors correctly.
		s.logger.Printf("History walk for %s incomplete, proceeding with %d signatures: %v",
			mint, len(records), walkErr)
	}

	result := &SyncResult{
		Venue:          resolved,
		VenueFallback:  fallback,
		SignaturesSeen: len(records),
	}
	if len(records) == 0 {
		return result, nil
	}
	result.NewestSignature = records[0].Signature

	for i, batch := range chunkSignatures(records, s.batchSize) {
		if i > 0 {
			if err := s.pacer.Wait(ctx); err != nil {
				return result, err
			}
		}

		fetched := s.fetcher.Fetch(ctx, mint, batch)
		if fetched.Exhausted {
			result.BatchesFailed++
			continue
		}

		for _, tx := range fetched.Transactions {
			result.Trades = append(result.Trades, s.deriver.Derive(tx, mint)...)
		}
	}

	sortTrades(result.Trades)
	s.observer.TradesDerived(mint, len(result.Trades))

	return result, nil
}

// sortTrades orders trades chronologically, breaking timestamp ties by slot
// and then signature so the order is total and stable across runs.
func sortTrades(trades []*domain.PricedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		if trades[i].Slot != trades[j].Slot {
			return trades[i].Slot < trades[j].Slot
		}
		return trades[i].Signature < trades[j].Signature
	})
}
