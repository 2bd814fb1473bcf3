package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
	"github.com/kcenon/common-game-server/internal/ratelimit"
)

// Config configures a Service: signing material, token lifetimes, and the
// login rate limit.
type Config struct {
	JWT TokenProviderConfig

	AccessTokenExpiry        time.Duration
	RefreshTokenExpiry       time.Duration
	BlacklistCleanupInterval time.Duration
	MinPasswordLength        int
	RateLimitMaxAttempts     uint32
	RateLimitWindow          time.Duration
}

// DefaultConfig returns the original auth service's documented defaults:
// 15-minute access tokens, 7-day refresh tokens, a 5-minute blacklist
// sweep, an 8-character password floor, and 5 login attempts per minute.
func DefaultConfig() Config {
	return Config{
		AccessTokenExpiry:        900 * time.Second,
		RefreshTokenExpiry:       604800 * time.Second,
		BlacklistCleanupInterval: 300 * time.Second,
		MinPasswordLength:        8,
		RateLimitMaxAttempts:     5,
		RateLimitWindow:          60 * time.Second,
	}
}

// Service orchestrates registration, login, refresh, logout, and token
// validation on top of a user repository, refresh token store, JWT
// provider, and revocation set.
type Service struct {
	cfg        Config
	users      IUserRepository
	tokens     ITokenStore
	provider   *TokenProvider
	revocation RevocationSet
	hasher     *PasswordHasher
	validator  *Validator
	limiter    *ratelimit.SlidingWindow
}

// NewService wires a Service from its dependencies. revocation is shared
// with provider so a jti revoked via RevokeAccessToken is rejected on the
// very next ValidateToken call.
func NewService(cfg Config, users IUserRepository, tokens ITokenStore, revocation RevocationSet) *Service {
	provider := NewTokenProvider(cfg.JWT, revocation)
	return &Service{
		cfg:        cfg,
		users:      users,
		tokens:     tokens,
		provider:   provider,
		revocation: revocation,
		hasher:     NewPasswordHasher(),
		validator:  NewValidator(cfg.MinPasswordLength),
		limiter:    ratelimit.NewSlidingWindow(cfg.RateLimitMaxAttempts, cfg.RateLimitWindow),
	}
}

// RegisterUser validates credentials, rejects duplicate usernames/emails,
// hashes the password, and persists the new user as an active player.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*UserRecord, error) {
	if res := s.validator.ValidateUsername(username); !res.Valid {
		return nil, svcerr.InvalidUsername(res.Message)
	}
	if res := s.validator.ValidateEmail(email); !res.Valid {
		return nil, svcerr.InvalidEmail(res.Message)
	}
	if res := s.validator.ValidatePassword(password); !res.Valid {
		return nil, svcerr.WeakPassword(res.Message)
	}

	if existing, err := s.users.FindByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, svcerr.UserAlreadyExists(username)
	}

	if existing, err := s.users.FindByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, svcerr.UserAlreadyExists(email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	record := UserRecord{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       UserStatusActive,
		Roles:        []string{"player"},
	}

	id, err := s.users.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	stored, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load created user: %w", err)
	}
	return stored, nil
}

// Login authenticates username/password from clientIP, rate-limiting
// attempts per IP and returning a uniform InvalidCredentials error for both
// "user not found" and "wrong password" so the response never discloses
// which part of the pair was wrong. An inactive account is reported the
// same way: distinguishing it would tell an attacker the username exists.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (*TokenPair, error) {
	if !s.limiter.Allow(clientIP) {
		return nil, svcerr.RateLimitExceeded(clientIP)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, svcerr.InvalidCredentials()
	}
	if user.Status != UserStatusActive {
		return nil, svcerr.InvalidCredentials()
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, svcerr.InvalidCredentials()
	}

	pair, err := s.issueTokenPair(ctx, *user)
	if err != nil {
		return nil, err
	}

	s.limiter.Reset(clientIP)
	return pair, nil
}

// RefreshToken rotates a refresh token: the presented token is revoked and
// a new access/refresh pair is issued, so a stolen refresh token can only
// be replayed once before its trail goes cold.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := s.tokens.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if record == nil {
		return nil, svcerr.InvalidToken(nil)
	}
	if record.Revoked {
		return nil, svcerr.TokenRevoked()
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, svcerr.RefreshTokenExpired()
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, svcerr.AuthenticationFailed("user not found for refresh token")
	}

	if _, err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("revoke old refresh token: %w", err)
	}

	return s.issueTokenPair(ctx, *user)
}

// Logout revokes every refresh token belonging to the user that presented
// refreshToken, logging out all of that user's devices/sessions at once.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokens.Find(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("find refresh token: %w", err)
	}
	if record == nil {
		return svcerr.InvalidToken(nil)
	}
	return s.tokens.RevokeAllForUser(ctx, record.UserID)
}

// ValidateToken decodes and verifies an access token, including the
// revocation set check performed by TokenProvider.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (*TokenClaims, error) {
	return s.provider.ValidateAccessToken(ctx, accessToken)
}

// RevokeAccessToken adds an access token's jti to the revocation set ahead
// of its natural expiry. An already-expired or already-revoked token is
// treated as a successful no-op, matching the original server's behavior
// (there's nothing further to revoke).
func (s *Service) RevokeAccessToken(ctx context.Context, accessToken string) error {
	claims, err := s.provider.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		if svcerrKindIs(err, svcerr.KindTokenExpired) || svcerrKindIs(err, svcerr.KindTokenRevoked) {
			return nil
		}
		return err
	}

	if claims.JTI == "" {
		return svcerr.InvalidToken(nil)
	}

	return s.revocation.Revoke(ctx, claims.JTI, claims.ExpiresAt)
}

// CleanupBlacklist sweeps expired revocation entries. Only meaningful for
// the in-memory Blacklist backend; RedisRevocationSet relies on Redis key
// TTLs and ignores this call implicitly (it has no Cleanup method, so it
// is never wired behind this path in production).
func (s *Service) CleanupBlacklist() int {
	if bl, ok := s.revocation.(*blacklistAdapter); ok {
		return bl.blacklist.Cleanup()
	}
	return 0
}

func (s *Service) issueTokenPair(ctx context.Context, user UserRecord) (*TokenPair, error) {
	claims := TokenClaims{
		Subject:  strconv.FormatUint(user.ID, 10),
		Username: user.Username,
		Roles:    user.Roles,
	}

	accessToken, err := s.provider.GenerateAccessToken(claims, s.cfg.AccessTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokens.Store(ctx, RefreshTokenRecord{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenExpiry),
		Revoked:   false,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresIn:  s.cfg.AccessTokenExpiry,
		RefreshExpiresIn: s.cfg.RefreshTokenExpiry,
	}, nil
}

func svcerrKindIs(err error, kind svcerr.Kind) bool {
	return svcerr.IsKind(err, kind)
}
