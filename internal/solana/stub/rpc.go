package stub

import (
	"context"
	"errors"

	"solana-price-history/internal/solana"
)

// ErrUnavailable simulates a transport-level failure.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient for testing.
// Signatures are stored newest-first per address, mirroring the provider,
// and Before/Until/Limit pagination is applied the way the provider does.
type RPCClient struct {
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo

	// FailBatchCalls makes the next N GetTransactionBatch calls fail.
	FailBatchCalls int
	// FailSignatureCalls makes the next N GetSignaturesForAddress calls fail.
	FailSignatureCalls int

	// Call counters for asserting pagination and retry behavior.
	SignatureCalls int
	BatchCalls     int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
// Unknown signatures return nil like the real provider.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	return c.Transactions[signature], nil
}

// GetTransactionBatch resolves each signature against the stub store.
// Unknown signatures yield nil entries.
func (c *RPCClient) GetTransactionBatch(_ context.Context, signatures []string) ([]*solana.Transaction, error) {
	c.BatchCalls++
	if c.FailBatchCalls > 0 {
		c.FailBatchCalls--
		return nil, ErrUnavailable
	}

	txs := make([]*solana.Transaction, len(signatures))
	for i, sig := range signatures {
		txs[i] = c.Transactions[sig]
	}
	return txs, nil
}

// GetSignaturesForAddress pages through the stored newest-first signature
// list applying Before, Until and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.SignatureCalls++
	if c.FailSignatureCalls > 0 {
		c.FailSignatureCalls--
		return nil, ErrUnavailable
	}

	sigs := c.Signatures[address]

	start := 0
	if opts != nil && opts.Before != "" {
		start = len(sigs)
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	end := len(sigs)
	if opts != nil && opts.Until != "" {
		for i := start; i < len(sigs); i++ {
			if sigs[i].Signature == opts.Until {
				end = i
				break
			}
		}
	}

	if start > end {
		start = end
	}
	page := sigs[start:end]

	if opts != nil && opts.Limit > 0 && opts.Limit < len(page) {
		page = page[:opts.Limit]
	}

	return page, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds newest-first signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
