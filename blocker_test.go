package fos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockerFIFOOrder(t *testing.T) {
	b := newBlocker(4)
	require.Equal(t, 0, b.Len())
	require.Equal(t, 4, b.Cap())

	require.True(t, b.Push(10))
	require.True(t, b.Push(11))
	require.True(t, b.Push(12))

	d, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(10), d)

	d, ok = b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(11), d)

	require.True(t, b.Push(13))

	d, ok = b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(12), d)

	d, ok = b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(13), d)

	_, ok = b.Pop()
	assert.False(t, ok)
}

func TestBlockerCapacity(t *testing.T) {
	b := newBlocker(2)
	require.True(t, b.Push(1))
	require.True(t, b.Push(2))
	assert.False(t, b.Push(3))
}

func TestBlockerRemoveMidQueuePreservesOrder(t *testing.T) {
	b := newBlocker(4)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	require.True(t, b.Remove(2))
	assert.False(t, b.Remove(2)) // already removed

	d, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(1), d)

	d, ok = b.Pop()
	require.True(t, ok)
	assert.Equal(t, UserDesc(3), d)
}

func TestBlockerContains(t *testing.T) {
	b := newBlocker(4)
	b.Push(5)
	assert.True(t, b.Contains(5))
	assert.False(t, b.Contains(6))
	b.Pop()
	assert.False(t, b.Contains(5))
}
