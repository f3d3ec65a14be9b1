package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns nil (no error) when the signature cannot be resolved.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetTransactionBatch retrieves transactions for all signatures in one
	// JSON-RPC batch request. The result has the same length and order as
	// the input; entries the provider could not resolve are nil.
	// The call is a single attempt - retry policy belongs to the caller.
	GetTransactionBatch(ctx context.Context, signatures []string) ([]*Transaction, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}
