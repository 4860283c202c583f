package overlay

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"mirage/internal/config"
	"mirage/internal/events"
	"mirage/internal/gpu"
	"mirage/internal/input"
	"mirage/internal/profiling"
	"mirage/internal/render"
	"mirage/internal/resource"
	"mirage/pkg/assetfmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	statsWidth   = 280
	statsLines   = 5
	lineHeight   = 14
	statsPadding = 6
	statsHeight  = statsLines*lineHeight + 2*statsPadding
	margin       = 8
)

// DefaultRefresh is how often the stats text is re-rasterized.
const DefaultRefresh = 250 * time.Millisecond

// StatsOption configures a Stats overlay.
type StatsOption func(*Stats)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StatsOption {
	return func(s *Stats) { s.now = now }
}

// WithRefresh sets the minimum time between texture refreshes.
func WithRefresh(d time.Duration) StatsOption {
	return func(s *Stats) { s.refresh = d }
}

// Stats draws frame rate, frame time, draw count and the most expensive profiler entries into a
// texture in the top-left corner. It is visible while config.GetShowOverlay is set; the
// ToggleOverlay action flips it.
type Stats struct {
	logger    zerolog.Logger
	resources *resource.Manager
	now       func() time.Time
	refresh   time.Duration

	quad     resource.Handle
	texture  resource.Handle
	material resource.Handle
	canvas   *image.RGBA

	lastRefresh time.Time
	frames      int
	windowStart time.Time
	fps         int
	frameTime   time.Duration
	draws       int
	refreshes   int

	unsubscribe []func()
}

// NewStats creates the overlay's quad, texture and material and subscribes to frame events on bus.
func NewStats(resources *resource.Manager, bus *events.Bus, logger zerolog.Logger, opts ...StatsOption) (*Stats, error) {
	s := &Stats{
		logger:    logger.With().Str("component", "overlay").Logger(),
		resources: resources,
		now:       time.Now,
		refresh:   DefaultRefresh,
		canvas:    image.NewRGBA(image.Rect(0, 0, statsWidth, statsHeight)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.quad = resources.RegisterPending(resource.KindMesh, "overlay.quad")
	if resources.CompleteUpload(s.quad, quadMesh()) != resource.StateReady {
		return nil, eris.Wrap(resources.Err(s.quad), "overlay quad")
	}
	s.rasterize()
	s.texture = resources.RegisterPending(resource.KindTexture, "overlay.stats")
	if resources.CompleteUpload(s.texture, s.textureData()) != resource.StateReady {
		return nil, eris.Wrap(resources.Err(s.texture), "overlay texture")
	}
	s.material = resources.RegisterPending(resource.KindMaterial, "overlay.material")
	mat := resource.MaterialData{
		Label:   "overlay.material",
		Shader:  "overlay",
		Color:   mgl32.Vec4{1, 1, 1, 1},
		Texture: s.texture,
		Blend:   gpu.BlendAlpha,
	}
	if resources.CompleteUpload(s.material, mat) != resource.StateReady {
		return nil, eris.Wrap(resources.Err(s.material), "overlay material")
	}

	s.windowStart = s.now()
	s.unsubscribe = append(s.unsubscribe,
		events.Subscribe(bus, func(ev events.Update) { s.observeUpdate(ev) }),
		events.Subscribe(bus, func(ev events.Render) { s.draws = ev.Draws }),
	)
	return s, nil
}

func quadMesh() resource.MeshData {
	return resource.MeshData{
		Label: "overlay.quad",
		Vertices: []float32{
			0, 0, 0, 0, 0, 1, 0, 0,
			1, 0, 0, 0, 0, 1, 1, 0,
			1, 1, 0, 0, 0, 1, 1, 1,
			0, 1, 0, 0, 0, 1, 0, 1,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
		Bounds:  resource.Bounds{Max: mgl32.Vec3{1, 1, 0}},
	}
}

func (s *Stats) observeUpdate(ev events.Update) {
	s.frameTime = ev.Delta
	s.frames++
	now := s.now()
	if elapsed := now.Sub(s.windowStart); elapsed >= time.Second {
		s.fps = int(float64(s.frames) / elapsed.Seconds())
		s.frames = 0
		s.windowStart = now
	}
}

// Compose returns the stats quad, refreshing its texture when due.
func (s *Stats) Compose(snapshot input.Snapshot, width, height int) []render.DrawItem {
	if snapshot.JustPressed(input.ActionToggleOverlay) {
		shown := config.ToggleShowOverlay()
		s.logger.Debug().Bool("shown", shown).Msg("stats overlay toggled")
	}
	if !config.GetShowOverlay() {
		return nil
	}

	if now := s.now(); now.Sub(s.lastRefresh) >= s.refresh {
		s.lastRefresh = now
		s.rasterize()
		if err := s.resources.Replace(s.texture, s.textureData()); err != nil {
			s.logger.Warn().Err(err).Msg("stats overlay refresh failed")
		} else {
			s.refreshes++
		}
	}

	w := min(statsWidth, max(width-2*margin, 0))
	h := min(statsHeight, max(height-2*margin, 0))
	if w == 0 || h == 0 {
		return nil
	}
	model := mgl32.Translate3D(margin, margin, 0).Mul4(mgl32.Scale3D(float32(w), float32(h), 1))
	return []render.DrawItem{{Mesh: s.quad, Material: s.material, Model: model}}
}

// Lines returns the text the next refresh will draw.
func (s *Stats) Lines() []string {
	return []string{
		fmt.Sprintf("FPS %d", s.fps),
		"frame " + profiling.FormatMs(s.frameTime),
		fmt.Sprintf("draws %d", s.draws),
		"top " + profiling.Format(profiling.LastFrame(), 2),
		fmt.Sprintf("gpu %s", s.resourceLine()),
	}
}

func (s *Stats) resourceLine() string {
	st := s.resources.Stats()
	return fmt.Sprintf("ready %d pending %d failed %d", st.Ready, st.Pending, st.Failed)
}

func (s *Stats) rasterize() {
	draw.Draw(s.canvas, s.canvas.Bounds(), image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  s.canvas,
		Src:  image.White,
		Face: basicfont.Face7x13,
	}
	for i, line := range s.Lines() {
		d.Dot = fixed.P(statsPadding, statsPadding+(i+1)*lineHeight-3)
		d.DrawString(line)
	}
}

func (s *Stats) textureData() resource.TextureData {
	img := assetfmt.FromRGBA(s.canvas)
	pixels := make([]byte, len(img.Pixels))
	copy(pixels, img.Pixels)
	return resource.TextureData{
		Label:  "overlay.stats",
		Width:  img.Width,
		Height: img.Height,
		Pixels: pixels,
		Filter: gpu.FilterNearest,
	}
}

// Refreshes returns how many times the texture was replaced.
func (s *Stats) Refreshes() int { return s.refreshes }

// Close unsubscribes from the bus and evicts the overlay's resources.
func (s *Stats) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
	s.resources.Evict(s.material)
	s.resources.Evict(s.texture)
	s.resources.Evict(s.quad)
}
