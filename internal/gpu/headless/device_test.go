package headless

import (
	"testing"

	"mirage/internal/fault"
	"mirage/internal/gpu"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFenceLatency(t *testing.T) {
	t.Parallel()
	d := New(WithFenceLatency(2))

	f1, err := d.Submit(&gpu.CommandList{})
	require.NoError(t, err)
	assert.False(t, d.PollFence(f1))

	_, _ = d.Submit(&gpu.CommandList{})
	assert.False(t, d.PollFence(f1))

	_, _ = d.Submit(&gpu.CommandList{})
	assert.True(t, d.PollFence(f1))
	assert.True(t, d.PollFence(0))
}

func TestFenceLatencyDrainsIdleQueue(t *testing.T) {
	t.Parallel()
	d := New(WithFenceLatency(2))

	f1, _ := d.Submit(&gpu.CommandList{})
	f2, _ := d.Submit(&gpu.CommandList{})
	assert.False(t, d.PollFence(f1), "older fences wait for later submissions")
	assert.False(t, d.PollFence(f2))
	assert.True(t, d.PollFence(f2), "no more work arrived, so the queue finishes")
	assert.True(t, d.PollFence(f1))

	f3, _ := d.Submit(&gpu.CommandList{})
	assert.False(t, d.PollFence(f3), "a new submission restarts the count")
	assert.False(t, d.PollFence(f3+1), "unsubmitted fences never signal")
	assert.True(t, d.PollFence(f3))
}

func TestManualFences(t *testing.T) {
	t.Parallel()
	d := New(WithManualFences())

	f1, _ := d.Submit(&gpu.CommandList{})
	f2, _ := d.Submit(&gpu.CommandList{})
	assert.False(t, d.PollFence(f1))

	d.Signal(f1)
	assert.True(t, d.PollFence(f1))
	assert.False(t, d.PollFence(f2))

	d.SignalAll()
	assert.True(t, d.PollFence(f2))
	assert.False(t, d.PollFence(f2+1), "unsubmitted fences never signal")
}

func TestCreateDestroyAndFailures(t *testing.T) {
	t.Parallel()
	d := New()

	buf, err := d.CreateBuffer(gpu.BufferDesc{Data: []byte{1}})
	require.NoError(t, err)
	tex, err := d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Stats().Live())

	d.FailNextCreate(eris.New("out of memory"))
	_, err = d.CreateBuffer(gpu.BufferDesc{})
	require.Error(t, err)
	_, err = d.CreateBuffer(gpu.BufferDesc{})
	require.NoError(t, err, "failure is one-shot")

	d.DestroyBuffer(buf)
	d.DestroyBuffer(buf)
	d.DestroyTexture(tex)
	assert.Equal(t, 2, d.Stats().Destroyed)

	d.SetLost(true)
	_, err = d.Submit(&gpu.CommandList{})
	assert.True(t, eris.Is(err, fault.ErrDeviceLost))
}

func TestSubmitRejectsDestroyedObjects(t *testing.T) {
	t.Parallel()
	d := New()
	buf, _ := d.CreateBuffer(gpu.BufferDesc{})
	pipe, _ := d.CreatePipeline(gpu.PipelineDesc{})
	list := &gpu.CommandList{Passes: []gpu.Pass{{Label: "opaque", Draws: []gpu.Draw{{Pipeline: pipe, VertexBuffer: buf}}}}}

	_, err := d.Submit(list)
	require.NoError(t, err)
	last := d.LastSubmission()
	assert.Equal(t, 1, last.DrawCount())

	d.DestroyBuffer(buf)
	_, err = d.Submit(list)
	require.Error(t, err)
}

func TestSurfaceScriptedFailures(t *testing.T) {
	t.Parallel()
	s := NewSurface(640, 480)
	s.FailAcquire(eris.Wrap(fault.ErrSurfaceLost, "resize"))

	require.Error(t, s.Acquire())
	require.NoError(t, s.Acquire())
	require.NoError(t, s.Resize(800, 600))
	w, h := s.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	acquired, _, _ := s.Counts()
	assert.Equal(t, 1, acquired)
}
