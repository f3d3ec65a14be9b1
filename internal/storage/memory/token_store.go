package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedToken // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TrackedToken),
	}
}

// Upsert adds a token or refreshes its venue. A nil venue leaves any stored
// venue in place; the cursor is left untouched either way.
func (s *TokenStore) Upsert(_ context.Context, token *domain.TrackedToken) error {
	if token == nil || token.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if existing, ok := s.data[token.Mint]; ok {
		if token.Venue != nil {
			existing.Venue = token.Venue
		}
		existing.UpdatedAt = now
		return nil
	}

	copy := *token
	copy.CreatedAt = now
	copy.UpdatedAt = now
	copy.LastSignature = nil
	s.data[token.Mint] = &copy
	return nil
}

// GetByMint retrieves a tracked token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TrackedToken, error) {
	if mint == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *token
	return &copy, nil
}

// List retrieves all tracked tokens, ordered by mint.
func (s *TokenStore) List(_ context.Context) ([]*domain.TrackedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TrackedToken, 0, len(s.data))
	for _, token := range s.data {
		copy := *token
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

// SetCursor advances the mint's sync cursor.
func (s *TokenStore) SetCursor(_ context.Context, mint, signature string) error {
	if mint == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.data[mint]
	if !ok {
		return storage.ErrNotFound
	}

	token.LastSignature = &signature
	token.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// GetCursor returns the mint's sync cursor, "" when no run has completed.
func (s *TokenStore) GetCursor(_ context.Context, mint string) (string, error) {
	if mint == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.data[mint]
	if !ok {
		return "", storage.ErrNotFound
	}

	if token.LastSignature == nil {
		return "", nil
	}
	return *token.LastSignature, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
