package fos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue32WriteReadFIFO(t *testing.T) {
	q := newQueue32(2, 3, nil)
	require.True(t, q.Write(1))
	require.True(t, q.Write(2))
	require.True(t, q.Write(3))
	assert.False(t, q.Write(4), "must reject writes past capacity")

	v, ok := q.ReadData()
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)

	require.True(t, q.Write(4))

	v, ok = q.ReadData()
	require.True(t, ok)
	assert.Equal(t, uint32(2), v)
	v, ok = q.ReadData()
	require.True(t, ok)
	assert.Equal(t, uint32(3), v)
	v, ok = q.ReadData()
	require.True(t, ok)
	assert.Equal(t, uint32(4), v)

	_, ok = q.ReadData()
	assert.False(t, ok)
}

func TestQueue32ReadDataLeavesLenConsistentAfterPop(t *testing.T) {
	q := newQueue32(2, 2, nil)
	require.True(t, q.Write(42))
	assert.Equal(t, 1, q.Len())
	v, ok := q.ReadData()
	require.True(t, ok)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, 0, q.Len())
}
