package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

const (
	mintSetKey     = "tracked_tokens"
	tokenKeyPrefix = "token:"

	fieldVenue         = "venue"
	fieldLastSignature = "last_signature"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
)

// TokenStore is a Redis implementation of storage.TokenStore: a set of
// tracked mints plus one hash per mint. Suited to deployments where the
// cursor is shared between short-lived sync workers without a SQL database.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a Redis token store over an existing client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// NewClient connects to Redis and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

func tokenKey(mint string) string {
	return tokenKeyPrefix + mint
}

// Upsert adds a token or refreshes its venue. A nil venue leaves any stored
// venue in place; the cursor field is left untouched either way.
func (s *TokenStore) Upsert(ctx context.Context, token *domain.TrackedToken) error {
	if token == nil || token.Mint == "" {
		return storage.ErrInvalidInput
	}

	now := time.Now().UnixMilli()
	fields := []interface{}{fieldUpdatedAt, now}
	if token.Venue != nil {
		fields = append(fields, fieldVenue, *token.Venue)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, mintSetKey, token.Mint)
	pipe.HSetNX(ctx, tokenKey(token.Mint), fieldCreatedAt, now)
	pipe.HSet(ctx, tokenKey(token.Mint), fields...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a tracked token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TrackedToken, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	fields, err := s.client.HGetAll(ctx, tokenKey(mint)).Result()
	if err != nil {
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}

	return tokenFromFields(mint, fields), nil
}

// List retrieves all tracked tokens, ordered by mint.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TrackedToken, error) {
	mints, err := s.client.SMembers(ctx, mintSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list tracked mints: %w", err)
	}
	sort.Strings(mints)

	tokens := make([]*domain.TrackedToken, 0, len(mints))
	for _, mint := range mints {
		token, err := s.GetByMint(ctx, mint)
		if err != nil {
			// Set and hash can drift if a hash expires or is deleted
			// manually; skip rather than fail the whole listing.
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// SetCursor advances the mint's sync cursor.
func (s *TokenStore) SetCursor(ctx context.Context, mint, signature string) error {
	if mint == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.client.Exists(ctx, tokenKey(mint)).Result()
	if err != nil {
		return fmt.Errorf("check token exists: %w", err)
	}
	if exists == 0 {
		return storage.ErrNotFound
	}

	err = s.client.HSet(ctx, tokenKey(mint),
		fieldLastSignature, signature,
		fieldUpdatedAt, time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}

// GetCursor returns the mint's sync cursor, "" when no run has completed.
func (s *TokenStore) GetCursor(ctx context.Context, mint string) (string, error) {
	if mint == "" {
		return "", storage.ErrInvalidInput
	}

	signature, err := s.client.HGet(ctx, tokenKey(mint), fieldLastSignature).Result()
	if errors.Is(err, redis.Nil) {
		// Field absent: either untracked or no completed run yet.
		exists, exErr := s.client.Exists(ctx, tokenKey(mint)).Result()
		if exErr != nil {
			return "", fmt.Errorf("check token exists: %w", exErr)
		}
		if exists == 0 {
			return "", storage.ErrNotFound
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return signature, nil
}

func tokenFromFields(mint string, fields map[string]string) *domain.TrackedToken {
	token := &domain.TrackedToken{Mint: mint}

	if venue := fields[fieldVenue]; venue != "" {
		token.Venue = &venue
	}
	if sig := fields[fieldLastSignature]; sig != "" {
		token.LastSignature = &sig
	}
	token.CreatedAt, _ = strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	token.UpdatedAt, _ = strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)

	return token
}
