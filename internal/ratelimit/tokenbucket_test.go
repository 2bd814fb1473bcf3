package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_ConsumeWithinCapacity(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	require.True(t, tb.Consume("session-1"))
	require.True(t, tb.Consume("session-1"))
	require.True(t, tb.Consume("session-1"))
	assert.False(t, tb.Consume("session-1"), "fourth consume should exceed burst capacity")
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	tb := NewTokenBucket(1, 1000)

	require.True(t, tb.Consume("k"))
	require.False(t, tb.Consume("k"))

	time.Sleep(5 * time.Millisecond)
	assert.True(t, tb.Consume("k"), "bucket should have refilled after 5ms at 1000 tokens/sec")
}

func TestTokenBucket_ConsumeNRejectsWhenInsufficient(t *testing.T) {
	tb := NewTokenBucket(5, 0)
	assert.False(t, tb.ConsumeN("k", 6))
	assert.True(t, tb.ConsumeN("k", 5))
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	tb := NewTokenBucket(1, 0)
	require.True(t, tb.Consume("a"))
	assert.True(t, tb.Consume("b"), "key b must have its own bucket")
}

func TestTokenBucket_Available(t *testing.T) {
	tb := NewTokenBucket(10, 0)
	assert.EqualValues(t, 10, tb.Available("unseen"))

	tb.Consume("k")
	assert.EqualValues(t, 9, tb.Available("k"))
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := NewTokenBucket(2, 0)
	tb.Consume("k")
	tb.Consume("k")
	require.False(t, tb.Consume("k"))

	tb.Reset("k")
	assert.True(t, tb.Consume("k"))
}

func TestTokenBucket_Remove(t *testing.T) {
	tb := NewTokenBucket(1, 0)
	tb.Consume("k")
	tb.Remove("k")
	// After removal the key is treated as new again, at full capacity.
	assert.True(t, tb.Consume("k"))
}
