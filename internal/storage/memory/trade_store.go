package memory

import (
	"context"
	"sort"
	"sync"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PricedTrade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.PricedTrade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if exists.
func (s *TradeStore) Insert(_ context.Context, trade *domain.PricedTrade) error {
	if trade == nil || trade.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[trade.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *trade
	s.data[trade.TradeID] = &copy
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.PricedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(trades))
	for _, trade := range trades {
		if trade == nil || trade.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[trade.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[trade.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[trade.TradeID] = struct{}{}
	}

	// Second pass: insert all
	for _, trade := range trades {
		copy := *trade
		s.data[trade.TradeID] = &copy
	}

	return nil
}

// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
func (s *TradeStore) GetByMint(_ context.Context, mint string) ([]*domain.PricedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricedTrade
	for _, trade := range s.data {
		if trade.Mint == mint {
			copy := *trade
			result = append(result, &copy)
		}
	}

	sortTradesAsc(result)
	return result, nil
}

// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive, ms).
func (s *TradeStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.PricedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricedTrade
	for _, trade := range s.data {
		if trade.Mint == mint && trade.Timestamp >= start && trade.Timestamp <= end {
			copy := *trade
			result = append(result, &copy)
		}
	}

	sortTradesAsc(result)
	return result, nil
}

func sortTradesAsc(trades []*domain.PricedTrade) {
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

var _ storage.TradeStore = (*TradeStore)(nil)
