package pricesync

import (
	"context"
	"fmt"
	"log"

	"solana-price-history/internal/solana"
)

// Walker limits.
const (
	// DefaultPageSize matches the provider's getSignaturesForAddress bound.
	DefaultPageSize = 1000
	// DefaultMaxRecords caps one run's forwarded signatures regardless of
	// history depth.
	DefaultMaxRecords = 5000
)

// HistoryWalker pages a venue's signature history backward from now (or
// from the supplied cursor) until exhausted.
type HistoryWalker struct {
	rpc        solana.RPCClient
	pacer      Pacer
	observer   Observer
	pageSize   int
	maxRecords int
	logger     *log.Logger
}

// WalkerOptions configures a HistoryWalker.
type WalkerOptions struct {
	RPC        solana.RPCClient
	Pacer      Pacer // inter-page pause, defaults to DefaultPagePause
	Observer   Observer
	PageSize   int
	MaxRecords int
	Logger     *log.Logger
}

// NewHistoryWalker creates a walker over the given RPC client.
func NewHistoryWalker(opts WalkerOptions) *HistoryWalker {
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NewIntervalPacer(DefaultPagePause)
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &HistoryWalker{
		rpc:        opts.RPC,
		pacer:      pacer,
		observer:   observer,
		pageSize:   pageSize,
		maxRecords: maxRecords,
		logger:     logger,
	}
}

// Walk returns the venue's successful signatures newest-first, strictly
// after the cursor (exclusive). Pagination anchors each page immediately
// before the previous page's oldest signature, so pages neither overlap nor
// gap. Failed transactions carry no price information and are dropped.
//
// On a page fetch error Walk returns the records collected so far together
// with the error; the caller decides whether partial history is usable.
func (w *HistoryWalker) Walk(ctx context.Context, venue, cursor string) ([]solana.SignatureInfo, error) {
	var records []solana.SignatureInfo
	var before string

	for {
		if before != "" {
			if err := w.pacer.Wait(ctx); err != nil {
				return records, err
			}
		}

		opts := &solana.SignaturesOpts{
			Limit: w.pageSize,
			Until: cursor,
		}
		if before != "" {
			opts.Before = before
		}

		page, err := w.rpc.GetSignaturesForAddress(ctx, venue, opts)
		if err != nil {
			return records, fmt.Errorf("get signatures for %s: %w", venue, err)
		}

		w.observer.PageFetched(venue, len(page))

		if len(page) == 0 {
			return records, nil
		}

		for _, sig := range page {
			if sig.Err != nil {
				continue
			}
			records = append(records, sig)
			if len(records) >= w.maxRecords {
				w.logger.Printf("History for %s truncated at %d signatures", venue, w.maxRecords)
				return records, nil
			}
		}

		before = page[len(page)-1].Signature
	}
}
