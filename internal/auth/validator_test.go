package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateEmail(t *testing.T) {
	v := NewValidator(8)

	valid := []string{"alice@example.com", "a.b+tag@sub.example.co"}
	for _, email := range valid {
		res := v.ValidateEmail(email)
		assert.True(t, res.Valid, "expected %q to be valid: %s", email, res.Message)
	}

	invalid := []string{
		"", "noat.example.com", "two@at@example.com", ".leading@example.com",
		"trailing.@example.com", "double..dot@example.com", "user@",
		"user@.example.com", "user@example..com", "user@nodot",
		"user@-bad.com", strings.Repeat("a", 255) + "@example.com",
	}
	for _, email := range invalid {
		res := v.ValidateEmail(email)
		assert.False(t, res.Valid, "expected %q to be invalid", email)
	}
}

func TestValidator_ValidatePassword(t *testing.T) {
	v := NewValidator(8)

	assert.True(t, v.ValidatePassword("Str0ng!Pass").Valid)

	assert.False(t, v.ValidatePassword("short1!").Valid, "too short")
	assert.False(t, v.ValidatePassword("alllowercase1!").Valid, "no uppercase")
	assert.False(t, v.ValidatePassword("ALLUPPERCASE1!").Valid, "no lowercase")
	assert.False(t, v.ValidatePassword("NoDigitsHere!").Valid, "no digit")
	assert.False(t, v.ValidatePassword("NoSpecial123").Valid, "no special char")
	assert.False(t, v.ValidatePassword(strings.Repeat("A1!a", 40)).Valid, "too long")
}

func TestValidator_ValidateUsername(t *testing.T) {
	v := NewValidator(8)

	assert.True(t, v.ValidateUsername("alice_b-2").Valid)

	assert.False(t, v.ValidateUsername("ab").Valid, "too short")
	assert.False(t, v.ValidateUsername("1abc").Valid, "must start with letter")
	assert.False(t, v.ValidateUsername("alice!").Valid, "invalid character")
	assert.False(t, v.ValidateUsername("alice__b").Valid, "consecutive specials")
	assert.False(t, v.ValidateUsername("alice-").Valid, "trailing special")
	assert.False(t, v.ValidateUsername("admin").Valid, "reserved")
	assert.False(t, v.ValidateUsername("Administrator").Valid, "reserved case-insensitive")
}
