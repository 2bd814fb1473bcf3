package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	svcerr "github.com/kcenon/common-game-server/infrastructure/errors"
)

// mapJWTError translates golang-jwt's parse/verify errors into the
// service's unified error kinds, distinguishing expiry from other
// malformed/invalid-signature failures the way TokenProvider::
// validateAccessToken did in the original implementation.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return svcerr.TokenExpired()
	}
	return errInvalidToken(err)
}

func errInvalidToken(err error) error {
	return svcerr.InvalidToken(err)
}

func errTokenRevoked() error {
	return svcerr.TokenRevoked()
}
