package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenStore_StoreFindRevoke(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, RefreshTokenRecord{
		Token: "tok-1", UserID: 1, ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec, err := store.Find(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Revoked)

	ok, err := store.Revoke(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	rec, _ = store.Find(ctx, "tok-1")
	assert.True(t, rec.Revoked)

	ok, err = store.Revoke(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryTokenStore_RevokeAllForUser(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "a", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "b", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "c", UserID: 8, ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, store.RevokeAllForUser(ctx, 7))

	a, _ := store.Find(ctx, "a")
	b, _ := store.Find(ctx, "b")
	c, _ := store.Find(ctx, "c")
	assert.True(t, a.Revoked)
	assert.True(t, b.Revoked)
	assert.False(t, c.Revoked, "other user's tokens must be untouched")
}

func TestInMemoryTokenStore_RemoveExpired(t *testing.T) {
	store := NewInMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "expired", UserID: 1, ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "fresh", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, store.RemoveExpired(ctx))

	expired, _ := store.Find(ctx, "expired")
	fresh, _ := store.Find(ctx, "fresh")
	assert.Nil(t, expired)
	assert.NotNil(t, fresh)
}
