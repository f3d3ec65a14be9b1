package pricesync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-history/internal/solana"
	"solana-price-history/internal/solana/stub"
)

const testVenue = "VenueAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

// newestFirstSigs builds n signatures sig-0 (newest) .. sig-(n-1) (oldest).
func newestFirstSigs(n int) []solana.SignatureInfo {
	sigs := make([]solana.SignatureInfo, n)
	for i := range sigs {
		sigs[i] = solana.SignatureInfo{Signature: fmt.Sprintf("sig-%d", i), Slot: int64(n - i)}
	}
	return sigs
}

func TestWalk_PaginatesWithoutOverlapOrGap(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(testVenue, newestFirstSigs(25))

	walker := NewHistoryWalker(WalkerOptions{
		RPC:      rpc,
		Pacer:    NopPacer(),
		PageSize: 10,
	})

	records, err := walker.Walk(context.Background(), testVenue, "")
	require.NoError(t, err)
	require.Len(t, records, 25)

	seen := make(map[string]bool)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("sig-%d", i), r.Signature)
		assert.False(t, seen[r.Signature], "duplicate %s", r.Signature)
		seen[r.Signature] = true
	}

	// 3 full-ish pages plus the empty terminator page.
	assert.Equal(t, 4, rpc.SignatureCalls)
}

func TestWalk_CursorIsExclusive(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(testVenue, newestFirstSigs(10))

	walker := NewHistoryWalker(WalkerOptions{RPC: rpc, Pacer: NopPacer(), PageSize: 4})

	records, err := walker.Walk(context.Background(), testVenue, "sig-6")
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "sig-0", records[0].Signature)
	assert.Equal(t, "sig-5", records[len(records)-1].Signature)
}

func TestWalk_DropsFailedTransactions(t *testing.T) {
	sigs := newestFirstSigs(6)
	sigs[1].Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	sigs[4].Err = "some error"

	rpc := stub.NewRPCClient()
	rpc.AddSignatures(testVenue, sigs)

	walker := NewHistoryWalker(WalkerOptions{RPC: rpc, Pacer: NopPacer()})

	records, err := walker.Walk(context.Background(), testVenue, "")
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Nil(t, r.Err)
	}
}

func TestWalk_CapsAtMaxRecords(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(testVenue, newestFirstSigs(50))

	walker := NewHistoryWalker(WalkerOptions{
		RPC:        rpc,
		Pacer:      NopPacer(),
		PageSize:   10,
		MaxRecords: 23,
	})

	records, err := walker.Walk(context.Background(), testVenue, "")
	require.NoError(t, err)
	assert.Len(t, records, 23)
	// Cap reached mid-page: no further pages requested.
	assert.Equal(t, 3, rpc.SignatureCalls)
}

func TestWalk_PacesBetweenPages(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(testVenue, newestFirstSigs(25))

	pacer := &countingPacer{}
	walker := NewHistoryWalker(WalkerOptions{RPC: rpc, Pacer: pacer, PageSize: 10})

	_, err := walker.Walk(context.Background(), testVenue, "")
	require.NoError(t, err)
	// First page is unpaced; every subsequent request waits once.
	assert.Equal(t, rpc.SignatureCalls-1, pacer.waits)
}

// failNthRPC delegates to the stub but fails one specific signature call.
type failNthRPC struct {
	*stub.RPCClient
	failOn int
	calls  int
}

func (c *failNthRPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.calls++
	if c.calls == c.failOn {
		return nil, stub.ErrUnavailable
	}
	return c.RPCClient.GetSignaturesForAddress(ctx, address, opts)
}

func TestWalk_PageErrorReturnsPartial(t *testing.T) {
	inner := stub.NewRPCClient()
	inner.AddSignatures(testVenue, newestFirstSigs(25))
	rpc := &failNthRPC{RPCClient: inner, failOn: 2}

	walker := NewHistoryWalker(WalkerOptions{RPC: rpc, Pacer: NopPacer(), PageSize: 10})

	records, err := walker.Walk(context.Background(), testVenue, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, stub.ErrUnavailable)
	// The successfully fetched first page is still returned.
	assert.Len(t, records, 10)
}

func TestWalk_EmptyHistory(t *testing.T) {
	rpc := stub.NewRPCClient()

	walker := NewHistoryWalker(WalkerOptions{RPC: rpc, Pacer: NopPacer()})

	records, err := walker.Walk(context.Background(), testVenue, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}
