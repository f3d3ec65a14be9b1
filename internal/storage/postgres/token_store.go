package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL. The cursor
// column is updated in place; everything else is insert-or-refresh.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert adds a token or refreshes its venue. A nil venue leaves any stored
// venue in place; the cursor is left untouched either way.
func (s *TokenStore) Upsert(ctx context.Context, token *domain.TrackedToken) error {
	if token == nil || token.Mint == "" {
		return storage.ErrInvalidInput
	}

	now := time.Now().UnixMilli()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tracked_tokens (mint, venue, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (mint) DO UPDATE
		SET venue = COALESCE(EXCLUDED.venue, tracked_tokens.venue),
		    updated_at = EXCLUDED.updated_at
	`, token.Mint, token.Venue, now)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a tracked token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TrackedToken, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT mint, venue, last_signature, created_at, updated_at
		FROM tracked_tokens
		WHERE mint = $1
	`, mint)

	token, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return token, nil
}

// List retrieves all tracked tokens, ordered by mint.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TrackedToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint, venue, last_signature, created_at, updated_at
		FROM tracked_tokens
		ORDER BY mint ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TrackedToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}

// SetCursor advances the mint's sync cursor.
func (s *TokenStore) SetCursor(ctx context.Context, mint, signature string) error {
	if mint == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tracked_tokens
		SET last_signature = $2, updated_at = $3
		WHERE mint = $1
	`, mint, signature, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetCursor returns the mint's sync cursor, "" when no run has completed.
func (s *TokenStore) GetCursor(ctx context.Context, mint string) (string, error) {
	if mint == "" {
		return "", storage.ErrInvalidInput
	}

	var signature *string
	err := s.pool.QueryRow(ctx, `
		SELECT last_signature FROM tracked_tokens WHERE mint = $1
	`, mint).Scan(&signature)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}

	if signature == nil {
		return "", nil
	}
	return *signature, nil
}

func scanToken(row pgx.Row) (*domain.TrackedToken, error) {
	var token domain.TrackedToken
	err := row.Scan(
		&token.Mint,
		&token.Venue,
		&token.LastSignature,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
