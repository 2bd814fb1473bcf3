package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords with bcrypt. The original
// auth service's PasswordHasher used SHA-256 plus a random salt but
// documented itself as "designed to be swappable with bcrypt ... in
// production deployments" — bcrypt folds its own salt into the stored
// hash, so UserRecord.Salt is unused by this implementation and kept only
// for schema compatibility with callers that still populate it.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher constructs a PasswordHasher at bcrypt's default cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches storedHash.
func (h *PasswordHasher) Verify(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
