package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-history/internal/domain"
	"solana-price-history/internal/storage"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		Mint:  "mint-1",
		Venue: ptr("venue-1"),
	}))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, "mint-1", got.Mint)
	require.NotNil(t, got.Venue)
	assert.Equal(t, "venue-1", *got.Venue)
	assert.Nil(t, got.LastSignature)
	assert.NotZero(t, got.CreatedAt)

	// Upsert refreshes the venue without touching the cursor.
	require.NoError(t, store.SetCursor(ctx, "mint-1", "sig-1"))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		Mint:  "mint-1",
		Venue: ptr("venue-2"),
	}))

	got, err = store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, "venue-2", *got.Venue)
	require.NotNil(t, got.LastSignature)
	assert.Equal(t, "sig-1", *got.LastSignature)
}

func TestTokenStore_UpsertNilVenueKeepsVenue(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{
		Mint:  "mint-1",
		Venue: ptr("venue-1"),
	}))

	// Re-registering a mint (startup --mint flag) carries no venue; the
	// cached one must survive.
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{Mint: "mint-1"}))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	require.NotNil(t, got.Venue)
	assert.Equal(t, "venue-1", *got.Venue)
}

func TestTokenStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{Mint: "mint-b"}))
	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{Mint: "mint-a"}))

	tokens, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "mint-a", tokens[0].Mint)
	assert.Equal(t, "mint-b", tokens[1].Mint)
}

func TestTokenStore_Cursor(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.TrackedToken{Mint: "mint-1"}))

	// No completed run yet: empty cursor, no error.
	cursor, err := store.GetCursor(ctx, "mint-1")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, store.SetCursor(ctx, "mint-1", "sig-9"))

	cursor, err = store.GetCursor(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, "sig-9", cursor)

	// Untracked mint.
	assert.ErrorIs(t, store.SetCursor(ctx, "missing", "sig-1"), storage.ErrNotFound)
	_, err = store.GetCursor(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.TrackedToken{}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SetCursor(ctx, "mint-1", ""), storage.ErrInvalidInput)
}
