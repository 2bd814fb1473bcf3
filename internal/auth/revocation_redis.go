package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevocationSet is the interface satisfied by RedisRevocationSet and by the
// Blacklist-backed set returned from NewInMemoryRevocationSet, letting internal/auth.Service swap backends without
// caring which one is wired in.
type RevocationSet interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationSet is a production-grade revocation set backed by Redis,
// using a TTL'd key per jti so expiry is enforced by Redis itself instead of
// a periodic in-process sweep.
type RedisRevocationSet struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationSet wraps an existing redis.Client. Keys are namespaced
// under prefix (e.g. "auth:revoked:") to share a Redis instance safely with
// other consumers.
func NewRedisRevocationSet(client *redis.Client, prefix string) *RedisRevocationSet {
	if prefix == "" {
		prefix = "auth:revoked:"
	}
	return &RedisRevocationSet{client: client, prefix: prefix}
}

func (r *RedisRevocationSet) key(jti string) string {
	return r.prefix + jti
}

// Revoke marks jti as revoked until expiresAt, after which Redis expires the
// key automatically.
func (r *RedisRevocationSet) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, r.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti is currently revoked.
func (r *RedisRevocationSet) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// blacklistAdapter adapts the in-memory Blacklist to the RevocationSet
// interface so callers can wire either backend identically.
type blacklistAdapter struct {
	blacklist *Blacklist
}

// NewInMemoryRevocationSet wraps a Blacklist as a RevocationSet.
func NewInMemoryRevocationSet(cleanupInterval time.Duration) RevocationSet {
	return &blacklistAdapter{blacklist: NewBlacklist(cleanupInterval)}
}

func (a *blacklistAdapter) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	a.blacklist.Revoke(jti, expiresAt)
	return nil
}

func (a *blacklistAdapter) IsRevoked(_ context.Context, jti string) (bool, error) {
	return a.blacklist.IsRevoked(jti), nil
}
