package fos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// probeWatermark must report the deepest touched byte, not merely the
// highest-addressed one: a stray dirty byte left behind nearer to entry by
// an earlier, shallower artifact must never mask a deeper, true watermark
// that sits below it with a gap of untouched bytes in between.
func TestThreadProbeWatermarkIgnoresDiscontiguousShallowerStrayByte(t *testing.T) {
	const stackSize = 100
	th := newThread(1, "probe", 0, AllocStatic, stackSize, nil)

	// A genuine deep touch: depth 50 dirties the byte at index
	// stackSize-50.
	th.stackRegion[50] = 0xA5
	// A non-contiguous stray byte much closer to entry (depth 5), with an
	// untouched gap between it and the real watermark below.
	th.stackRegion[95] = 0xA5

	th.probeWatermark(time.Now())

	assert.Equal(t, 50, th.maxUsageBytes, "the deeper, true watermark must win over the shallower stray byte")
	assert.Equal(t, 50, th.maxUsagePercent)
}

// probeWatermark's recorded maximum must never shrink: a later, shallower
// probe must not overwrite a deeper high-water mark recorded earlier.
func TestThreadProbeWatermarkIsSticky(t *testing.T) {
	const stackSize = 100
	th := newThread(1, "probe", 0, AllocStatic, stackSize, nil)

	th.stackRegion[20] = 0xA5 // depth 80
	th.probeWatermark(time.Now())
	require := assert.New(t)
	require.Equal(80, th.maxUsageBytes)

	// Clear it and touch only a shallow byte; the recorded max must hold.
	th.stackRegion[20] = 0
	th.stackRegion[90] = 0xA5 // depth 10
	th.probeWatermark(time.Now())

	require.Equal(80, th.maxUsageBytes, "watermark must never regress once a deeper point has been observed")
}

// TouchStack dirties the region nearest entry first and grows the touched
// range towards the deep end as depth increases, matching probeWatermark's
// index-0-is-deepest convention.
func TestThreadHandleTouchStackGrowsWatermarkWithDepth(t *testing.T) {
	k := newTestKernel(t)
	desc, err := k.CreateThread("toucher", 0, AllocStatic, 128, func(self *ThreadHandle) {})
	if err != nil {
		t.Fatal(err)
	}
	h := &ThreadHandle{k: k, desc: desc}

	h.TouchStack(10)
	k.mu.Lock()
	th := k.threads[desc]
	th.probeWatermark(time.Now())
	got := th.maxUsageBytes
	k.mu.Unlock()
	assert.Equal(t, 10, got)

	h.TouchStack(40)
	k.mu.Lock()
	th = k.threads[desc]
	th.probeWatermark(time.Now())
	got = th.maxUsageBytes
	k.mu.Unlock()
	assert.Equal(t, 40, got)
}
