package fos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarySemaphoreTakeGiveUncontended(t *testing.T) {
	s := newBinarySemaphore(2, false, 4)
	assert.True(t, s.take(10))
	assert.Equal(t, Locked, s.state)

	_, ok := s.give()
	assert.False(t, ok)
	assert.Equal(t, Unlocked, s.state)
}

func TestBinarySemaphoreContendedHandsOffDirectly(t *testing.T) {
	s := newBinarySemaphore(2, false, 4)
	require.True(t, s.take(10))
	assert.False(t, s.take(11)) // blocks

	woken, ok := s.give()
	require.True(t, ok)
	assert.Equal(t, UserDesc(11), woken)
	// Ownership transferred directly: semaphore stays Locked on 11's behalf.
	assert.Equal(t, Locked, s.state)
}

func TestBinarySemaphoreInitiallyLocked(t *testing.T) {
	s := newBinarySemaphore(2, true, 4)
	assert.False(t, s.take(10))
	assert.Equal(t, 1, s.blocker.Len())
}
