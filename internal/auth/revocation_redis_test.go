package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func TestRedisRevocationSet_RevokeAndCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rs := NewRedisRevocationSet(client, "")
	ctx := context.Background()

	revoked, err := rs.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, rs.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = rs.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRedisRevocationSet_PastExpiryStillRevokesBriefly(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rs := NewRedisRevocationSet(client, "")
	ctx := context.Background()

	require.NoError(t, rs.Revoke(ctx, "jti-already-expired", time.Now().Add(-time.Minute)))

	revoked, err := rs.IsRevoked(ctx, "jti-already-expired")
	require.NoError(t, err)
	require.True(t, revoked, "a jti revoked with a past expiry still gets a 1s grace TTL")
}

func TestNewInMemoryRevocationSet(t *testing.T) {
	rs := NewInMemoryRevocationSet(time.Minute)
	ctx := context.Background()

	revoked, err := rs.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, rs.Revoke(ctx, "jti", time.Now().Add(time.Hour)))

	revoked, err = rs.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	require.True(t, revoked)
}
