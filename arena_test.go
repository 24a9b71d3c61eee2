package fos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocFreeReuse(t *testing.T) {
	a := newArena(arenaKernel, 1024, nil)
	off1, ok := a.Alloc(64)
	require.True(t, ok)
	off2, ok := a.Alloc(64)
	require.True(t, ok)
	assert.NotEqual(t, off1, off2)

	require.True(t, a.Free(off1))
	off3, ok := a.Alloc(32)
	require.True(t, ok)
	assert.Equal(t, off1, off3, "first-fit should reuse the freed block")
}

func TestArenaIntegrityDetectsCorruption(t *testing.T) {
	var firedTag arenaTag
	fired := false
	a := newArena(arenaThreads, 256, func(tag arenaTag, _ int) {
		fired = true
		firedTag = tag
	})
	off, ok := a.Alloc(16)
	require.True(t, ok)
	assert.True(t, a.CheckIntegrity())

	a.Corrupt(off)
	assert.False(t, a.CheckIntegrity())
	assert.True(t, fired)
	assert.Equal(t, arenaThreads, firedTag)
}

func TestArenaAllocFailsWhenExhausted(t *testing.T) {
	a := newArena(arenaKernel, 32, nil)
	_, ok := a.Alloc(16)
	require.True(t, ok)
	_, ok = a.Alloc(64)
	assert.False(t, ok)
}
