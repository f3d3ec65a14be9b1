package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO priced_trades (
		trade_id, tx_signature, mint, side, owner,
		pre_token_balance, post_token_balance,
		pre_native_balance, post_native_balance,
		price, slot, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.PricedTrade) error {
	if trade == nil || trade.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(trade)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.PricedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, trade := range trades {
		if trade == nil || trade.TradeID == "" {
			return storage.ErrInvalidInput
		}

		_, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(trade)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.PricedTrade, error) {
	query := `
		SELECT trade_id, tx_signature, mint, side, owner,
		       pre_token_balance, post_token_balance,
		       pre_native_balance, post_native_balance,
		       price, slot, timestamp
		FROM priced_trades
		WHERE mint = $1
		ORDER BY timestamp ASC, slot ASC, tx_signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trades by mint: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive, ms).
func (s *TradeStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.PricedTrade, error) {
	query := `
		SELECT trade_id, tx_signature, mint, side, owner,
		       pre_token_balance, post_token_balance,
		       pre_native_balance, post_native_balance,
		       price, slot, timestamp
		FROM priced_trades
		WHERE mint = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, slot ASC, tx_signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func tradeArgs(t *domain.PricedTrade) []any {
	return []any{
		t.TradeID,
		t.Signature,
		t.Mint,
		string(t.Side),
		t.Owner,
		t.PreTokenBalance,
		t.PostTokenBalance,
		t.PreNativeBalance,
		t.PostNativeBalance,
		t.Price,
		t.Slot,
		t.Timestamp,
	}
}

// scanTrades scans multiple rows into a slice of PricedTrade.
func scanTrades(rows pgx.Rows) ([]*domain.PricedTrade, error) {
	var trades []*domain.PricedTrade

	for rows.Next() {
		var trade domain.PricedTrade
		var side string

		err := rows.Scan(
			&trade.TradeID,
			&trade.Signature,
			&trade.Mint,
			&side,
			&trade.Owner,
			&trade.PreTokenBalance,
			&trade.PostTokenBalance,
			&trade.PreNativeBalance,
			&trade.PostNativeBalance,
			&trade.Price,
			&trade.Slot,
			&trade.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trade.Side = domain.TradeSide(side)
		trades = append(trades, &trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
