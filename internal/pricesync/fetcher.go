package pricesync

import (
	"context"
	"log"
	"time"

	"solana-price-history/internal/solana"
)

// DefaultBatchSize is the number of signatures fetched per batch request.
const DefaultBatchSize = 100

// RetryPolicy bounds batch fetch retries: MaxAttempts total attempts with a
// fixed Delay between them.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the standard batch retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

// BatchResult distinguishes batch outcomes without using errors for control
// flow: a fully or partially resolved batch carries transactions and a miss
// count, an exhausted batch carries nothing.
type BatchResult struct {
	// Transactions are the resolved bodies, input order preserved.
	Transactions []*solana.Transaction
	// Requested is the input batch size.
	Requested int
	// Missing counts signatures the provider returned null for.
	Missing int
	// Exhausted is true when every attempt failed and the batch was dropped.
	Exhausted bool
}

// BatchFetcher retrieves transaction bodies for signature batches with
// bounded retry. A batch that exhausts its attempts degrades to an empty
// result; it never aborts the run.
type BatchFetcher struct {
	rpc      solana.RPCClient
	retry    RetryPolicy
	observer Observer
	logger   *log.Logger
}

// FetcherOptions configures a BatchFetcher.
type FetcherOptions struct {
	RPC      solana.RPCClient
	Retry    RetryPolicy // zero value means DefaultRetryPolicy
	Observer Observer
	Logger   *log.Logger
}

// NewBatchFetcher creates a batch fetcher.
func NewBatchFetcher(opts FetcherOptions) *BatchFetcher {
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &BatchFetcher{
		rpc:      opts.RPC,
		retry:    retry,
		observer: observer,
		logger:   logger,
	}
}

// Fetch retrieves the batch, retrying per the policy. Null entries for
// unresolvable signatures are filtered out, not treated as errors.
func (f *BatchFetcher) Fetch(ctx context.Context, mint string, signatures []string) *BatchResult {
	result := &BatchResult{Requested: len(signatures)}
	if len(signatures) == 0 {
		return result
	}

	f.observer.BatchStart(mint, len(signatures))

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				result.Exhausted = true
				return result
			case <-time.After(f.retry.Delay):
			}
		}

		txs, err := f.rpc.GetTransactionBatch(ctx, signatures)
		if err != nil {
			f.observer.BatchRetry(mint, attempt, err)
			if attempt < f.retry.MaxAttempts {
				f.logger.Printf("Batch fetch attempt %d/%d for %s failed: %v",
					attempt, f.retry.MaxAttempts, mint, err)
			}
			continue
		}

		for _, tx := range txs {
			if tx == nil {
				result.Missing++
				continue
			}
			result.Transactions = append(result.Transactions, tx)
		}

		f.observer.BatchDone(mint, len(result.Transactions), result.Missing)
		return result
	}

	result.Exhausted = true
	f.observer.BatchExhausted(mint, len(signatures))
	f.logger.Printf("ERROR: batch of %d signatures for %s dropped after %d attempts",
		len(signatures), mint, f.retry.MaxAttempts)
	return result
}

// chunkSignatures splits signature records into fetch-sized string batches.
func chunkSignatures(records []solana.SignatureInfo, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var chunks [][]string
	for i := 0; i < len(records); i += size {
		end := i + size
		if end > len(records) {
			end = len(records)
		}

		chunk := make([]string, 0, end-i)
		for _, r := range records[i:end] {
			chunk = append(chunk, r.Signature)
		}
		chunks = append(chunks, chunk)
	}

	return chunks
}
