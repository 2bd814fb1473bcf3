package auth

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kcenon/common-game-server/internal/cryptoutil"
)

// JWTAlgorithm selects the signing algorithm TokenProvider uses.
type JWTAlgorithm string

const (
	// AlgHS256 signs with a shared secret, the default kept for
	// backward compatibility with older deployments.
	AlgHS256 JWTAlgorithm = "HS256"
	// AlgRS256 signs with an RSA private key, recommended for
	// production so verifying services never see the signing secret.
	AlgRS256 JWTAlgorithm = "RS256"
)

// TokenClaims is the decoded payload of an access token: subject, username,
// granted roles, and the jti used to reference it in the revocation set.
type TokenClaims struct {
	Subject   string
	Username  string
	Roles     []string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// accessTokenClaims is the JWT claim set TokenProvider signs, matching the
// wire shape {sub, usr, roles, jti, iat, exp}.
type accessTokenClaims struct {
	Username string   `json:"usr"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenPair is the access + refresh token pair returned on successful
// authentication or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// TokenProvider issues and verifies JWT access tokens, and generates opaque
// refresh tokens. It consults a RevocationSet so a revoked jti is rejected
// even before its natural expiry.
type TokenProvider struct {
	signingKey    []byte
	rsaPrivateKey *rsa.PrivateKey
	rsaPublicKey  *rsa.PublicKey
	algorithm     JWTAlgorithm
	revocation    RevocationSet
}

// TokenProviderConfig configures TokenProvider construction.
type TokenProviderConfig struct {
	SigningKey    string
	RSAPrivateKey *rsa.PrivateKey
	RSAPublicKey  *rsa.PublicKey
	Algorithm     JWTAlgorithm
}

// NewTokenProvider constructs a TokenProvider. revocation may be nil, in
// which case ValidateAccessToken never checks for revocation (tests only;
// production always wires a RevocationSet).
func NewTokenProvider(cfg TokenProviderConfig, revocation RevocationSet) *TokenProvider {
	alg := cfg.Algorithm
	if alg == "" {
		alg = AlgHS256
	}
	return &TokenProvider{
		signingKey:    []byte(cfg.SigningKey),
		rsaPrivateKey: cfg.RSAPrivateKey,
		rsaPublicKey:  cfg.RSAPublicKey,
		algorithm:     alg,
		revocation:    revocation,
	}
}

// GenerateAccessToken signs a JWT access token carrying claims, expiring
// after expiry, with a unique jti for later revocation.
func (p *TokenProvider) GenerateAccessToken(claims TokenClaims, expiry time.Duration) (string, error) {
	now := time.Now()
	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}

	jti := claims.JTI
	if jti == "" {
		var err error
		jti, err = cryptoutil.RandomHex(16)
		if err != nil {
			return "", err
		}
	}

	tokenClaims := accessTokenClaims{
		Username: claims.Username,
		Roles:    claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	switch p.algorithm {
	case AlgRS256:
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims)
		return token.SignedString(p.rsaPrivateKey)
	default:
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
		return token.SignedString(p.signingKey)
	}
}

// ValidateAccessToken parses and verifies token, checking its signature,
// expiry, and (if a RevocationSet is wired) the revocation set.
func (p *TokenProvider) ValidateAccessToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			if p.rsaPublicKey == nil {
				return nil, jwt.ErrTokenUnverifiable
			}
			return p.rsaPublicKey, nil
		case *jwt.SigningMethodHMAC:
			return p.signingKey, nil
		default:
			return nil, jwt.ErrTokenSignatureInvalid
		}
	})

	if err != nil {
		return nil, mapJWTError(err)
	}

	claims, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, errInvalidToken(nil)
	}

	decoded := &TokenClaims{
		Subject:  claims.Subject,
		Username: claims.Username,
		Roles:    claims.Roles,
		JTI:      claims.ID,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}

	if p.revocation != nil && decoded.JTI != "" {
		revoked, err := p.revocation.IsRevoked(ctx, decoded.JTI)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errTokenRevoked()
		}
	}

	return decoded, nil
}

// GenerateRefreshToken returns a cryptographically random opaque refresh
// token (32 bytes, hex-encoded).
func GenerateRefreshToken() (string, error) {
	return cryptoutil.RandomHex(32)
}
