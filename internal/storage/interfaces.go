package storage

import (
	"context"

	"solana-price-history/internal/domain"
)

// TradeStore provides access to priced_trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.PricedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.PricedTrade) error

	// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PricedTrade, error)

	// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PricedTrade, error)
}

// TokenStore provides access to tracked_tokens storage. Unlike the trade
// stores it is not append-only: the sync cursor advances in place.
type TokenStore interface {
	// Upsert adds a token or refreshes its venue. A nil venue leaves any
	// stored venue in place. The cursor is not touched; use SetCursor for
	// that.
	Upsert(ctx context.Context, t *domain.TrackedToken) error

	// GetByMint retrieves a tracked token. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TrackedToken, error)

	// List retrieves all tracked tokens, ordered by mint.
	List(ctx context.Context) ([]*domain.TrackedToken, error)

	// SetCursor advances the mint's sync cursor. Returns ErrNotFound if the
	// mint is not tracked.
	SetCursor(ctx context.Context, mint, signature string) error

	// GetCursor returns the mint's sync cursor, "" when no run has completed.
	// Returns ErrNotFound if the mint is not tracked.
	GetCursor(ctx context.Context, mint string) (string, error)
}

// ChartPointStore provides access to chart_points storage.
type ChartPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.ChartPoint) error

	// GetByMint retrieves all points for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.ChartPoint, error)

	// GetByTimeRange retrieves points for a mint within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.ChartPoint, error)
}
