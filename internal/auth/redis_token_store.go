package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTokenStore is the production ITokenStore, persisting refresh tokens
// in Redis so any authserver replica can validate and rotate them. Each
// token is a hash keyed by its value; a per-user set tracks every token
// belonging to that user so RevokeAllForUser (all-device logout) doesn't
// require a table scan.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore wraps an existing redis.Client. Keys are namespaced
// under prefix (e.g. "auth:").
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = "auth:"
	}
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) tokenKey(token string) string {
	return s.prefix + "refresh:" + token
}

func (s *RedisTokenStore) userSetKey(userID uint64) string {
	return s.prefix + "user_tokens:" + strconv.FormatUint(userID, 10)
}

func (s *RedisTokenStore) Store(ctx context.Context, record RefreshTokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	key := s.tokenKey(record.Token)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":    record.UserID,
		"expires_at": record.ExpiresAt.Unix(),
		"revoked":    record.Revoked,
	})
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, s.userSetKey(record.UserID), record.Token)
	pipe.Expire(ctx, s.userSetKey(record.UserID), ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Find(ctx context.Context, token string) (*RefreshTokenRecord, error) {
	vals, err := s.client.HGetAll(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	userID, _ := strconv.ParseUint(vals["user_id"], 10, 64)
	expiresUnix, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	revoked := vals["revoked"] == "1" || vals["revoked"] == "true"

	return &RefreshTokenRecord{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Unix(expiresUnix, 0),
		Revoked:   revoked,
	}, nil
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) (bool, error) {
	key := s.tokenKey(token)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check refresh token: %w", err)
	}
	if exists == 0 {
		return false, nil
	}
	if err := s.client.HSet(ctx, key, "revoked", true).Err(); err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return true, nil
}

func (s *RedisTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	setKey := s.userSetKey(userID)
	tokens, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("list user tokens: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.HSet(ctx, s.tokenKey(token), "revoked", true)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke all for user: %w", err)
	}
	return nil
}

// RemoveExpired is a no-op for RedisTokenStore: every key carries a TTL
// matching the refresh token's expiry, so Redis reclaims it automatically.
func (s *RedisTokenStore) RemoveExpired(_ context.Context) error {
	return nil
}
