package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newMiniredisTokenStore(t *testing.T) *RedisTokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTokenStore(client, "auth:")
}

func TestRedisTokenStore_StoreFindRevoke(t *testing.T) {
	store := newMiniredisTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, RefreshTokenRecord{
		Token: "tok-1", UserID: 42, ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec, err := store.Find(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.EqualValues(t, 42, rec.UserID)
	require.False(t, rec.Revoked)

	ok, err := store.Revoke(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, ok)

	rec, err = store.Find(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, rec.Revoked)
}

func TestRedisTokenStore_RevokeAllForUser(t *testing.T) {
	store := newMiniredisTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "a", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "b", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Store(ctx, RefreshTokenRecord{Token: "c", UserID: 2, ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, store.RevokeAllForUser(ctx, 1))

	a, _ := store.Find(ctx, "a")
	b, _ := store.Find(ctx, "b")
	c, _ := store.Find(ctx, "c")
	require.True(t, a.Revoked)
	require.True(t, b.Revoked)
	require.False(t, c.Revoked)
}

func TestRedisTokenStore_FindMissing(t *testing.T) {
	store := newMiniredisTokenStore(t)
	rec, err := store.Find(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, rec)
}
