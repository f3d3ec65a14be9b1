package clickhouse

import (
	"context"
	"fmt"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// ChartPointStore implements storage.ChartPointStore using ClickHouse.
type ChartPointStore struct {
	conn *Conn
}

// NewChartPointStore creates a new ChartPointStore.
func NewChartPointStore(conn *Conn) *ChartPointStore {
	return &ChartPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ChartPointStore = (*ChartPointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly
// before the batch is sent.
func (s *ChartPointStore) InsertBulk(ctx context.Context, points []*domain.ChartPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Mint, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Mint, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO chart_points (
			mint, timestamp_ms, slot, price, volume, trade_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Mint, uint64(p.TimestampMs), uint64(p.Slot),
			p.Price, p.Volume, uint32(p.TradeCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
func (s *ChartPointStore) GetByMint(ctx context.Context, mint string) ([]*domain.ChartPoint, error) {
	query := `
		SELECT mint, timestamp_ms, slot, price, volume, trade_count
		FROM chart_points
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanChartPoints(rows)
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive, ms).
func (s *ChartPointStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.ChartPoint, error) {
	query := `
		SELECT mint, timestamp_ms, slot, price, volume, trade_count
		FROM chart_points
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanChartPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *ChartPointStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM chart_points
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanChartPoints scans multiple rows.
func scanChartPoints(rows chRows) ([]*domain.ChartPoint, error) {
	var points []*domain.ChartPoint

	for rows.Next() {
		var p domain.ChartPoint
		var timestampMs, slot uint64
		var tradeCount uint32

		err := rows.Scan(
			&p.Mint, &timestampMs, &slot,
			&p.Price, &p.Volume, &tradeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chart point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Slot = int64(slot)
		p.TradeCount = int(tradeCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chart point rows: %w", err)
	}

	return points, nil
}
