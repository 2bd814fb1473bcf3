package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratchAllocator_BasicAllocation(t *testing.T) {
	a := NewScratchAllocator(0)
	mem := a.Allocate(128)
	assert.NotNil(t, mem)
	assert.GreaterOrEqual(t, a.BytesUsed(), 128)
}

func TestScratchAllocator_AlignedAllocation(t *testing.T) {
	a := NewScratchAllocator(0)
	a.Allocate(1)
	assert.Equal(t, scratchAlignment, a.BytesUsed())
	a.Allocate(1)
	assert.Equal(t, scratchAlignment*2, a.BytesUsed())
}

func TestScratchAllocator_ResetReclaims(t *testing.T) {
	a := NewScratchAllocator(0)
	a.Allocate(1024)
	assert.GreaterOrEqual(t, a.BytesUsed(), 1024)

	a.Reset()
	assert.Equal(t, 0, a.BytesUsed())
}

func TestScratchAllocator_GrowsBeyondInitialCapacity(t *testing.T) {
	a := NewScratchAllocator(64)
	initialCap := a.Capacity()

	a.Allocate(initialCap + 1024)
	assert.Greater(t, a.Capacity(), initialCap)
}

func TestScratchAllocator_DefaultsCapacity(t *testing.T) {
	a := NewScratchAllocator(0)
	assert.Equal(t, DefaultScratchCapacity, a.Capacity())
}

func TestNewWorkerScratchAllocators_Independent(t *testing.T) {
	workers := NewWorkerScratchAllocators(4)
	assert.Len(t, workers, 4)

	workers[0].Allocate(64)
	assert.Equal(t, 0, workers[1].BytesUsed(), "each worker slot owns an independent arena")
}
