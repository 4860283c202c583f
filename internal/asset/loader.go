// Package asset loads meshes, textures and materials in the background.
//
// Submit returns a Pending handle at once. Files are read and parsed on a worker pool; results are
// queued and applied to the resource manager by Drain, which the frame loop calls on the render
// thread at the start of every update. Nothing in this package touches the GPU from a worker.
package asset

import (
	"context"
	"io/fs"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"mirage/internal/diag"
	"mirage/internal/fault"
	"mirage/internal/gpu"
	"mirage/internal/profiling"
	"mirage/internal/resource"
	"mirage/pkg/assetfmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const diagSource = "asset"

var textureExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// KindOf infers the resource kind of an asset path from its extension.
func KindOf(p string) (resource.Kind, bool) {
	lower := strings.ToLower(p)
	ext := path.Ext(lower)
	switch {
	case ext == ".mat", strings.HasSuffix(lower, ".mat.json"):
		return resource.KindMaterial, true
	case ext == ".json", ext == ".obj":
		return resource.KindMesh, true
	case textureExts[ext]:
		return resource.KindTexture, true
	}
	return 0, false
}

// entry is a submitted asset, known by its content key until its handle is evicted.
type entry struct {
	key       string
	handle    resource.Handle
	filter    gpu.Filter
	cancelled *atomic.Bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithWorkers sets the number of decode goroutines.
func WithWorkers(n int) Option {
	return func(l *Loader) { l.workers = n }
}

// WithQueueSize bounds the job and completion queues.
func WithQueueSize(n int) Option {
	return func(l *Loader) { l.queueSize = n }
}

// WithSink sets where decode and upload failures are reported.
func WithSink(sink diag.Sink) Option {
	return func(l *Loader) { l.sink = sink }
}

// WithMaxTextureSize scales textures down so neither side exceeds n pixels. Zero disables scaling.
func WithMaxTextureSize(n int) Option {
	return func(l *Loader) { l.maxTextureSize = n }
}

// Stats counts loader activity since creation.
type Stats struct {
	Known     int
	Backlog   int
	Queued    int
	Decoded   int64
	Delivered int64
	Failed    int64
	Discarded int64
}

// Loader turns asset paths into resource handles. Submit, Drain and Shutdown must be called from
// the render thread.
type Loader struct {
	logger    zerolog.Logger
	resources *resource.Manager
	fsys      fs.FS
	sink      diag.Sink
	pool      *workerPool

	workers        int
	queueSize      int
	maxTextureSize int

	entries  map[string]*entry
	byHandle map[resource.Handle]*entry
	backlog  []job
	closed   bool

	decoded   atomic.Int64
	delivered int64
	failed    int64
	discarded int64
}

// NewLoader starts a loader reading files from fsys and delivering into resources.
func NewLoader(resources *resource.Manager, fsys fs.FS, logger zerolog.Logger, opts ...Option) *Loader {
	l := &Loader{
		logger:    logger.With().Str("component", "asset").Logger(),
		resources: resources,
		fsys:      fsys,
		sink:      diag.Nop{},
		workers:   1,
		queueSize: 64,
		entries:   make(map[string]*entry),
		byHandle:  make(map[resource.Handle]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool = newWorkerPool(l.workers, l.queueSize, l.decode)
	resources.OnEvict(l.evicted)
	l.logger.Debug().Int("workers", l.workers).Int("queue", l.queueSize).Msg("asset loader started")
	return l
}

// ContentKey returns the deduplication key for p, or false if p is not a loadable asset path.
func ContentKey(p string) (string, resource.Kind, string, bool) {
	clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if !fs.ValidPath(clean) || clean == "." {
		return "", 0, "", false
	}
	kind, ok := KindOf(clean)
	if !ok {
		return "", 0, "", false
	}
	return kind.String() + ":" + clean, kind, clean, true
}

// Submit returns the handle for the asset at p, queuing a decode if the asset is not already known.
// Repeated submissions of the same asset return the same handle until it is evicted. An error is
// returned only for paths that name no loadable asset.
func (l *Loader) Submit(p string) (resource.Handle, error) {
	return l.submit(p, gpu.FilterLinear)
}

func (l *Loader) submit(p string, filter gpu.Filter) (resource.Handle, error) {
	key, kind, clean, ok := ContentKey(p)
	if !ok {
		return resource.Handle{}, eris.Errorf("unsupported asset path %q", p)
	}
	if e, ok := l.entries[key]; ok {
		return e.handle, nil
	}

	h := l.resources.RegisterPending(kind, clean)
	e := &entry{key: key, handle: h, filter: filter, cancelled: new(atomic.Bool)}
	l.entries[key] = e
	l.byHandle[h] = e

	if l.closed {
		l.resources.Fail(h, eris.Wrapf(fault.ErrShutdown, "load %s", clean))
		return h, nil
	}
	j := job{key: key, path: clean, kind: kind, handle: h, cancelled: e.cancelled}
	if len(l.backlog) > 0 || !l.pool.submit(j) {
		l.backlog = append(l.backlog, j)
	}
	l.logger.Debug().Str("path", clean).Stringer("handle", h).Msg("asset submitted")
	return h, nil
}

// evicted runs on the render thread when the resource manager evicts a handle. Work that has not
// started is skipped; results still in flight are discarded on delivery.
func (l *Loader) evicted(h resource.Handle) {
	e, ok := l.byHandle[h]
	if !ok {
		return
	}
	e.cancelled.Store(true)
	delete(l.byHandle, h)
	delete(l.entries, e.key)
	if f, ok := l.sink.(interface{ Forget(source, key string) }); ok {
		f.Forget(diagSource, e.key)
	}
}

// Drain applies every completed decode to the resource manager and returns how many it applied.
// It never blocks.
func (l *Loader) Drain() int {
	defer profiling.Track("asset.drain")()

	l.flushBacklog()
	n := 0
	for {
		select {
		case res := <-l.pool.results:
			if l.deliver(res) {
				n++
			}
		default:
			return n
		}
	}
}

func (l *Loader) flushBacklog() {
	if len(l.backlog) == 0 || l.closed {
		return
	}
	i := 0
	for ; i < len(l.backlog); i++ {
		if l.backlog[i].cancelled.Load() {
			continue
		}
		if !l.pool.submit(l.backlog[i]) {
			break
		}
	}
	l.backlog = append(l.backlog[:0], l.backlog[i:]...)
}

func (l *Loader) deliver(res result) bool {
	h := res.job.handle
	e, ok := l.byHandle[h]
	if res.job.cancelled.Load() || !ok || e.cancelled != res.job.cancelled {
		l.discarded++
		l.logger.Debug().Str("path", res.job.path).Msg("discarding result for evicted asset")
		return false
	}

	if res.err != nil {
		err := eris.Wrapf(fault.ErrDecode, "%s: %v", res.job.path, res.err)
		l.resources.Fail(h, err)
		l.report(e.key, err)
		return true
	}

	data := res.data
	if td, ok := data.(resource.TextureData); ok {
		td.Filter = e.filter
		data = td
	}
	if md, ok := data.(resource.MaterialData); ok && res.texture != "" {
		tex, err := l.submit(res.texture, res.filter)
		if err != nil {
			err = eris.Wrapf(fault.ErrDecode, "%s: %v", res.job.path, err)
			l.resources.Fail(h, err)
			l.report(e.key, err)
			return true
		}
		md.Texture = tex
		data = md
	}
	if l.resources.CompleteUpload(h, data) == resource.StateFailed {
		l.report(e.key, l.resources.Err(h))
		return true
	}
	l.delivered++
	return true
}

func (l *Loader) report(key string, err error) {
	l.failed++
	l.sink.Report(diag.Diagnostic{Source: diagSource, Key: key, Err: err, Time: time.Now()})
}

// decode runs on a worker goroutine.
func (l *Loader) decode(ctx context.Context, j job) result {
	defer profiling.Track("asset.decode")()

	res := result{job: j}
	raw, err := fs.ReadFile(l.fsys, j.path)
	if err != nil {
		res.err = eris.Wrap(err, "read")
		return res
	}
	if ctx.Err() != nil || j.cancelled.Load() {
		res.err = context.Canceled
		return res
	}
	l.decoded.Add(1)

	switch j.kind {
	case resource.KindMesh:
		var m *assetfmt.Mesh
		if strings.EqualFold(path.Ext(j.path), ".obj") {
			m, err = assetfmt.ParseOBJ(raw)
		} else {
			m, err = assetfmt.ParseMeshJSON(raw)
		}
		if err != nil {
			res.err = err
			return res
		}
		res.data = resource.MeshData{
			Label:    j.path,
			Vertices: m.Vertices,
			Indices:  m.Indices,
			Bounds:   resource.Bounds{Min: mgl32.Vec3(m.Min), Max: mgl32.Vec3(m.Max)},
		}

	case resource.KindTexture:
		img, err := assetfmt.DecodeImage(raw, l.maxTextureSize)
		if err != nil {
			res.err = err
			return res
		}
		res.data = resource.TextureData{Label: j.path, Width: img.Width, Height: img.Height, Pixels: img.Pixels}

	case resource.KindMaterial:
		mat, err := assetfmt.ParseMaterial(raw)
		if err != nil {
			res.err = err
			return res
		}
		blend := gpu.BlendOpaque
		if mat.Blend == "alpha" {
			blend = gpu.BlendAlpha
		}
		res.data = resource.MaterialData{
			Label:  j.path,
			Shader: mat.Shader,
			Color:  mgl32.Vec4(mat.Color),
			Blend:  blend,
		}
		res.texture = mat.Texture
		if mat.Filter == "nearest" {
			res.filter = gpu.FilterNearest
		}
	}
	return res
}

// Handle returns the handle of a known asset.
func (l *Loader) Handle(p string) (resource.Handle, bool) {
	key, _, _, ok := ContentKey(p)
	if !ok {
		return resource.Handle{}, false
	}
	e, ok := l.entries[key]
	if !ok {
		return resource.Handle{}, false
	}
	return e.handle, true
}

// Stats returns a snapshot of loader counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Known:     len(l.entries),
		Backlog:   len(l.backlog),
		Queued:    l.pool.queued(),
		Decoded:   l.decoded.Load(),
		Delivered: l.delivered,
		Failed:    l.failed,
		Discarded: l.discarded,
	}
}

// Shutdown cancels all work that has not been delivered. Handles still Pending are failed so that
// nothing waits on them. It does not wait for decodes already running.
func (l *Loader) Shutdown() {
	if l.closed {
		return
	}
	l.closed = true
	l.pool.shutdown()
	l.backlog = nil
	for _, e := range l.entries {
		e.cancelled.Store(true)
		if l.resources.State(e.handle) == resource.StatePending {
			l.resources.Fail(e.handle, eris.Wrapf(fault.ErrShutdown, "load %s", e.key))
		}
	}
	l.logger.Debug().Msg("asset loader shut down")
}

// Wait blocks until every worker goroutine has exited. Only meaningful after Shutdown.
func (l *Loader) Wait() error {
	return l.pool.wait()
}
