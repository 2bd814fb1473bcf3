package auth

import "testing"

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher()

	hash, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !h.Verify("correct-horse-battery-staple", hash) {
		t.Fatal("expected correct password to verify")
	}
	if h.Verify("wrong-password", hash) {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestPasswordHasher_DistinctSaltsPerHash(t *testing.T) {
	h := NewPasswordHasher()

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}

	if a == b {
		t.Fatal("bcrypt hashes of the same password should differ due to per-hash salt")
	}
}
