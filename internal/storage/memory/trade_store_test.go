package memory

import (
	"context"
	"errors"
	"testing"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

func testTrade(tradeID string, timestamp int64) *domain.PricedTrade {
	return &domain.PricedTrade{
		TradeID:           tradeID,
		Signature:         "sig-" + tradeID,
		Mint:              "mint-1",
		Side:              domain.TradeSideSell,
		Owner:             "owner-1",
		PreTokenBalance:   5.0,
		PostTokenBalance:  3.0,
		PreNativeBalance:  1.0,
		PostNativeBalance: 1.5,
		Price:             4.0,
		Slot:              100,
		Timestamp:         timestamp,
	}
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("t1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByMint(ctx, "mint-1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result))
	}
	if result[0].Price != 4.0 {
		t.Errorf("Price mismatch: got %f, want 4.0", result[0].Price)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("t1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, testTrade("t1", 1000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_InsertBulkAtomicity(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("t1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.PricedTrade{
		testTrade("t2", 2000),
		testTrade("t1", 1000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	result, _ := store.GetByMint(ctx, "mint-1")
	if len(result) != 1 {
		t.Errorf("Failed bulk must not insert partial rows: got %d trades", len(result))
	}
}

func TestTradeStore_GetByMintOrdering(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PricedTrade{
		testTrade("t3", 3000),
		testTrade("t1", 1000),
		testTrade("t2", 2000),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByMint(ctx, "mint-1")
	if len(result) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(result))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if result[i].TradeID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, result[i].TradeID)
		}
	}
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.PricedTrade{
		testTrade("t1", 1000),
		testTrade("t2", 2000),
		testTrade("t3", 3000),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "mint-1", 1500, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(result))
	}
	if result[0].TradeID != "t2" || result[1].TradeID != "t3" {
		t.Errorf("Unexpected trades: %s, %s", result[0].TradeID, result[1].TradeID)
	}
}

func TestTradeStore_InvalidInput(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.PricedTrade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty trade_id, got %v", err)
	}
}
