package profiling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The profiler is package-global, so these tests run sequentially.

func record(name string, d time.Duration) {
	mu.Lock()
	frameTotals[name] += d
	mu.Unlock()
}

func TestTrackAccumulates(t *testing.T) {
	ResetFrame()

	stop := Track("frame.Update")
	time.Sleep(2 * time.Millisecond)
	stop()
	Track("frame.Update")()

	snap := Snapshot()
	require.Contains(t, snap, "frame.Update")
	assert.GreaterOrEqual(t, snap["frame.Update"], 2*time.Millisecond)
}

func TestResetFrameKeepsLastFrame(t *testing.T) {
	ResetFrame()
	record("frame.Submit", 3*time.Millisecond)
	record("asset.Drain", time.Millisecond)

	ResetFrame()

	assert.Empty(t, Snapshot())
	last := LastFrame()
	require.Len(t, last, 2)
	assert.Equal(t, "frame.Submit", last[0].Name)
	assert.Equal(t, "asset.Drain", last[1].Name)
}

func TestSumWithPrefix(t *testing.T) {
	ResetFrame()
	record("frame.Update", 2*time.Millisecond)
	record("frame.Submit", 3*time.Millisecond)
	record("asset.Drain", 7*time.Millisecond)

	assert.Equal(t, 5*time.Millisecond, SumWithPrefix("frame."))
	assert.Zero(t, SumWithPrefix("audio."))
}

func TestTopN(t *testing.T) {
	ResetFrame()
	record("a", 1500*time.Microsecond)
	record("b", 4*time.Millisecond)
	record("c", 200*time.Microsecond)

	assert.Equal(t, "b:4ms, a:1.5ms", TopN(2))
	assert.Equal(t, "b:4ms, a:1.5ms, c:0.2ms", TopN(10))
	assert.Empty(t, TopN(0))
}
