package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"mirage/internal/diag"
	"mirage/internal/fault"
	"mirage/internal/gpu"
	"mirage/internal/gpu/headless"
	"mirage/internal/resource"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleJSON = `{"positions":[0,0,0, 1,0,0, 0,1,0]}`

// gatedFS blocks every Open until gate is closed and counts opens per name.
type gatedFS struct {
	files fstest.MapFS
	gate  chan struct{}

	mu    sync.Mutex
	opens map[string]int
}

func newGatedFS(files fstest.MapFS) *gatedFS {
	return &gatedFS{files: files, gate: make(chan struct{}), opens: make(map[string]int)}
}

func (g *gatedFS) Open(name string) (fs.File, error) {
	g.mu.Lock()
	g.opens[name]++
	g.mu.Unlock()
	<-g.gate
	return g.files.Open(name)
}

func (g *gatedFS) openCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens[name]
}

func (g *gatedFS) release() { close(g.gate) }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader(t *testing.T, fsys fs.FS, opts ...Option) (*Loader, *resource.Manager, *headless.Device) {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	dev := headless.New()
	res := resource.NewManager(dev, logger)
	l := NewLoader(res, fsys, logger, opts...)
	t.Cleanup(l.Shutdown)
	return l, res, dev
}

// drainUntil drains l until cond holds.
func drainUntil(t *testing.T, l *Loader, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.Drain()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func TestKindOf(t *testing.T) {
	cases := map[string]resource.Kind{
		"a/tri.json":      resource.KindMesh,
		"a/tri.OBJ":       resource.KindMesh,
		"a/wood.png":      resource.KindTexture,
		"a/wood.jpeg":     resource.KindTexture,
		"a/wood.webp":     resource.KindTexture,
		"a/wood.mat":      resource.KindMaterial,
		"a/wood.mat.json": resource.KindMaterial,
	}
	for p, want := range cases {
		got, ok := KindOf(p)
		assert.True(t, ok, p)
		assert.Equal(t, want, got, p)
	}
	_, ok := KindOf("notes.txt")
	assert.False(t, ok)
}

func TestContentKeyCleansPaths(t *testing.T) {
	a, _, _, ok := ContentKey("meshes/../meshes/tri.json")
	require.True(t, ok)
	b, _, clean, ok := ContentKey(`/meshes\tri.json`)
	require.True(t, ok)
	assert.Equal(t, a, b)
	assert.Equal(t, "meshes/tri.json", clean)

	_, _, _, ok = ContentKey("../outside.png")
	assert.False(t, ok)
}

func TestSubmitRejectsUnsupportedPaths(t *testing.T) {
	l, res, _ := newTestLoader(t, fstest.MapFS{})

	for _, p := range []string{"readme.txt", "../escape.png", ""} {
		h, err := l.Submit(p)
		assert.Error(t, err, p)
		assert.True(t, h.IsZero())
	}
	assert.Equal(t, resource.Stats{}, res.Stats())
}

func TestSubmitSamePathDecodesOnce(t *testing.T) {
	fsys := newGatedFS(fstest.MapFS{"meshes/tri.json": {Data: []byte(triangleJSON)}})
	l, res, _ := newTestLoader(t, fsys, WithWorkers(4))

	h1, err := l.Submit("meshes/tri.json")
	require.NoError(t, err)
	h2, err := l.Submit("./meshes/tri.json")
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, h1.Generation(), h2.Generation())
	assert.Equal(t, resource.StatePending, res.State(h1))

	fsys.release()
	drainUntil(t, l, func() bool { return res.State(h1) == resource.StateReady })

	h3, err := l.Submit("meshes/tri.json")
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	assert.Equal(t, 1, fsys.openCount("meshes/tri.json"))
	assert.Equal(t, int64(1), l.Stats().Decoded)
}

func TestResultAppliedOnlyByDrain(t *testing.T) {
	l, res, _ := newTestLoader(t, fstest.MapFS{"tri.json": {Data: []byte(triangleJSON)}})

	h, err := l.Submit("tri.json")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(l.pool.results) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, resource.StatePending, res.State(h), "decoded data waits for the render thread")

	assert.Equal(t, 1, l.Drain())
	obj, st := res.Get(h)
	require.Equal(t, resource.StateReady, st)
	assert.Equal(t, 3, obj.Mesh.VertexCount)
	assert.Equal(t, float32(1), obj.Mesh.Bounds.Max.X())
}

func TestDecodeFailureReportedOnce(t *testing.T) {
	sink := diag.NewLog(zerolog.Nop(), 8)
	l, res, _ := newTestLoader(t, fstest.MapFS{"broken.json": {Data: []byte(`{"positions":`)}}, WithSink(sink))

	h, err := l.Submit("broken.json")
	require.NoError(t, err)
	drainUntil(t, l, func() bool { return res.State(h) == resource.StateFailed })

	assert.Equal(t, fault.KindResource, fault.KindOf(res.Err(h)))
	assert.Equal(t, 1, sink.Count())

	again, err := l.Submit("broken.json")
	require.NoError(t, err)
	assert.Equal(t, h, again)
	l.Drain()
	assert.Equal(t, 1, sink.Count())
	assert.Equal(t, int64(1), l.Stats().Failed)
}

func TestMissingFileFails(t *testing.T) {
	sink := diag.NewLog(zerolog.Nop(), 8)
	l, res, _ := newTestLoader(t, fstest.MapFS{}, WithSink(sink))

	h, err := l.Submit("textures/missing.png")
	require.NoError(t, err)
	drainUntil(t, l, func() bool { return res.State(h) == resource.StateFailed })

	recent := sink.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "asset", recent[0].Source)
	assert.Equal(t, "texture:textures/missing.png", recent[0].Key)
}

func TestEvictCancelsQueuedAndDiscardsInFlight(t *testing.T) {
	fsys := newGatedFS(fstest.MapFS{
		"a.json": {Data: []byte(triangleJSON)},
		"b.json": {Data: []byte(triangleJSON)},
	})
	l, res, _ := newTestLoader(t, fsys, WithWorkers(1))

	a, err := l.Submit("a.json")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fsys.openCount("a.json") == 1 }, 2*time.Second, time.Millisecond)
	b, err := l.Submit("b.json")
	require.NoError(t, err)

	// a is decoding, b has not started.
	assert.True(t, res.Evict(a))
	assert.True(t, res.Evict(b))
	assert.Equal(t, resource.StateInvalid, res.State(a))
	assert.Equal(t, 0, l.Stats().Known)

	fsys.release()
	require.Eventually(t, func() bool { return len(l.pool.results) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, l.Drain())
	assert.Equal(t, int64(1), l.Stats().Discarded)
	assert.Equal(t, 0, fsys.openCount("b.json"))

	// Resubmitting after eviction starts a fresh load under a new handle.
	again, err := l.Submit("a.json")
	require.NoError(t, err)
	assert.NotEqual(t, a, again)
	drainUntil(t, l, func() bool { return res.State(again) == resource.StateReady })
}

func TestMaterialLoadsItsTexture(t *testing.T) {
	l, res, dev := newTestLoader(t, fstest.MapFS{
		"materials/brick.mat.json": {Data: []byte(`{"texture":"#albedo","textures":{"albedo":"textures/brick.png"},"filter":"nearest"}`)},
		"textures/brick.png":       {Data: pngBytes(t)},
	}, WithWorkers(2))

	mat, err := l.Submit("materials/brick.mat.json")
	require.NoError(t, err)
	drainUntil(t, l, func() bool { return res.State(mat) == resource.StateReady })

	tex, ok := l.Handle("textures/brick.png")
	require.True(t, ok)
	drainUntil(t, l, func() bool { return res.State(tex) == resource.StateReady })

	obj, _ := res.Get(mat)
	assert.Equal(t, tex, obj.Material.Texture)
	assert.Equal(t, gpu.BlendOpaque, obj.Material.Blend)

	texObj, _ := res.Get(tex)
	desc, ok := dev.HasTexture(texObj.Texture)
	require.True(t, ok)
	assert.Equal(t, gpu.FilterNearest, desc.Filter)
	assert.Equal(t, 2, desc.Width)
}

func TestBacklogAbsorbsFullQueue(t *testing.T) {
	files := fstest.MapFS{}
	paths := []string{"m0.json", "m1.json", "m2.json", "m3.json", "m4.json"}
	for _, p := range paths {
		files[p] = &fstest.MapFile{Data: []byte(triangleJSON)}
	}
	l, res, _ := newTestLoader(t, files, WithWorkers(1), WithQueueSize(1))

	handles := make([]resource.Handle, len(paths))
	for i, p := range paths {
		h, err := l.Submit(p)
		require.NoError(t, err)
		handles[i] = h
	}
	drainUntil(t, l, func() bool {
		for _, h := range handles {
			if res.State(h) != resource.StateReady {
				return false
			}
		}
		return true
	})
	assert.Equal(t, 0, l.Stats().Backlog)
}

func TestShutdownFailsPendingWithoutWaiting(t *testing.T) {
	fsys := newGatedFS(fstest.MapFS{"slow.json": {Data: []byte(triangleJSON)}})
	l, res, _ := newTestLoader(t, fsys)

	h, err := l.Submit("slow.json")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fsys.openCount("slow.json") == 1 }, 2*time.Second, time.Millisecond)

	l.Shutdown()
	assert.Equal(t, resource.StateFailed, res.State(h))
	assert.Equal(t, fault.KindShutdown, fault.KindOf(res.Err(h)))

	late, err := l.Submit("late.json")
	require.NoError(t, err)
	assert.Equal(t, resource.StateFailed, res.State(late))

	fsys.release()
	require.NoError(t, l.Wait())
	assert.Equal(t, 0, l.Drain())
}
