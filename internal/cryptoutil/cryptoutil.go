// Package cryptoutil provides the cryptographic primitives shared by the
// authentication service and the gateway: SHA-256, HMAC-SHA256, RSA-SHA256
// sign/verify over PEM-encoded key material, base64url and hex encoding,
// constant-time comparison, key derivation, and secure random generation.
// It deliberately carries none of the blockchain-specific ECDSA/VRF/address
// machinery the teacher repo's internal/crypto package also contained.
package cryptoutil

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key of keyLen bytes from masterKey using HKDF-SHA256,
// salted and info-bound so distinct callers never collide on the same
// derived key space.
func DeriveKey(masterKey, salt []byte, info string, keyLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, masterKey, salt, []byte(info))
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("random bytes: %w", err)
	}
	return b, nil
}

// RandomHex returns a lowercase hex string encoding n random bytes.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HMACSign returns the HMAC-SHA256 signature of data under key.
func HMACSign(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// HMACVerify reports whether signature is a valid HMAC-SHA256 over data
// under key, using a constant-time comparison.
func HMACVerify(key, data, signature []byte) bool {
	return hmac.Equal(signature, HMACSign(key, data))
}

// Hash256 returns the SHA-256 digest of data.
func Hash256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// ConstantTimeEqual compares two byte slices in constant time, matching
// PasswordHasher::constantTimeEqual from the original implementation.
func ConstantTimeEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// HexEncode returns the lowercase hex encoding of data.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// Base64URLEncode encodes data as unpadded base64url, matching the wire
// encoding used for JWT segments and opaque tokens throughout this module.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes unpadded base64url text.
func Base64URLDecode(text string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("base64url decode: %w", err)
	}
	return b, nil
}

// ParseRSAPrivateKeyPEM parses a PEM-encoded PKCS#1 or PKCS#8 RSA private
// key held entirely in memory; no file I/O is performed.
func ParseRSAPrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("parse rsa private key: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse rsa private key: not an RSA key")
	}
	return rsaKey, nil
}

// ParseRSAPublicKeyPEM parses a PEM-encoded PKIX RSA public key held
// entirely in memory.
func ParseRSAPublicKeyPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("parse rsa public key: no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("parse rsa public key: not an RSA key")
	}
	return rsaKey, nil
}

// RSASignSHA256 signs the SHA-256 digest of data with an RSA private key
// loaded via ParseRSAPrivateKeyPEM, using PKCS#1 v1.5 padding (the scheme
// golang-jwt's RS256 signer also uses, so signatures produced here verify
// interchangeably with the JWT token provider's RS256 mode).
func RSASignSHA256(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	return sig, nil
}

// RSAVerifySHA256 reports whether signature is a valid RSA-SHA256 signature
// over data under the given public key.
func RSAVerifySHA256(key *rsa.PublicKey, data, signature []byte) bool {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}
