package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// ChartPointStore is an in-memory implementation of storage.ChartPointStore.
type ChartPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ChartPoint // keyed by composite key
}

// NewChartPointStore creates a new in-memory chart point store.
func NewChartPointStore() *ChartPointStore {
	return &ChartPointStore{
		data: make(map[string]*domain.ChartPoint),
	}
}

// pointKey generates a unique key for a chart point.
func pointKey(mint string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", mint, timestampMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
func (s *ChartPointStore) InsertBulk(_ context.Context, points []*domain.ChartPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.Mint, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		copy := *p
		s.data[pointKey(p.Mint, p.TimestampMs)] = &copy
	}

	return nil
}

// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
func (s *ChartPointStore) GetByMint(_ context.Context, mint string) ([]*domain.ChartPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChartPoint
	for _, p := range s.data {
		if p.Mint == mint {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPointsAsc(result)
	return result, nil
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive, ms).
func (s *ChartPointStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.ChartPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ChartPoint
	for _, p := range s.data {
		if p.Mint == mint && p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPointsAsc(result)
	return result, nil
}

func sortPointsAsc(points []*domain.ChartPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}

var _ storage.ChartPointStore = (*ChartPointStore)(nil)
