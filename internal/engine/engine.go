// Package engine wires the runtime core together from a loaded configuration and the platform
// pieces the caller opened: a window, its surface, a GPU device, an audio backend and the asset
// file system.
package engine

import (
	"context"
	"io/fs"
	"time"

	"mirage/internal/asset"
	"mirage/internal/audio"
	"mirage/internal/components"
	"mirage/internal/config"
	"mirage/internal/diag"
	"mirage/internal/ecs"
	"mirage/internal/events"
	"mirage/internal/frame"
	"mirage/internal/gpu"
	"mirage/internal/input"
	"mirage/internal/overlay"
	"mirage/internal/platform"
	"mirage/internal/render"
	"mirage/internal/resource"
	"mirage/internal/systems"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Platform is what the caller provides.
type Platform struct {
	Window  platform.Window
	Surface gpu.Surface
	Device  gpu.Device
	Audio   audio.Backend
	Assets  fs.FS
}

// Engine holds every runtime collaborator. All fields are owned by the render thread except Audio
// and Diagnostics, which are safe for concurrent use.
type Engine struct {
	Config      config.Config
	Logger      zerolog.Logger
	World       *ecs.World
	Resources   *resource.Manager
	Assets      *asset.Loader
	Graph       *render.Graph
	Input       *input.Router
	Bus         *events.Bus
	Audio       *audio.Scheduler
	Stats       *overlay.Stats
	Diagnostics *diag.Log
	Systems     []systems.System
	Scheduler   *frame.Scheduler

	depth resource.Handle
}

// New builds an engine. Extra scheduler options are applied after the configuration.
func New(cfg config.Config, logger zerolog.Logger, p Platform, opts ...frame.Option) (*Engine, error) {
	if p.Window == nil || p.Surface == nil || p.Device == nil || p.Assets == nil {
		return nil, eris.New("engine needs a window, a surface, a device and an asset file system")
	}
	if p.Audio == nil {
		p.Audio = audio.SilentBackend{}
	}
	config.Apply(cfg)

	width, height := p.Surface.Size()
	e := &Engine{
		Config:      cfg,
		Logger:      logger,
		World:       ecs.NewWorld(logger),
		Resources:   resource.NewManager(p.Device, logger, resource.WithViewport(width, height)),
		Input:       input.NewRouter(),
		Bus:         events.NewBus(),
		Diagnostics: diag.NewLog(logger, 64),
	}
	e.Assets = asset.NewLoader(e.Resources, p.Assets, logger,
		asset.WithWorkers(cfg.Workers()),
		asset.WithQueueSize(cfg.AssetQueue),
		asset.WithSink(e.Diagnostics),
	)
	e.Graph = render.NewGraph(e.Resources, logger)
	e.Audio = audio.NewScheduler(p.Audio, logger, audio.WithSink(e.Diagnostics))
	e.depth = e.Resources.RegisterViewport("scene.depth", func(w, h int) gpu.TextureDesc {
		return gpu.TextureDesc{Width: w, Height: h, Format: gpu.FormatDepth24}
	})

	stats, err := overlay.NewStats(e.Resources, e.Bus, logger)
	if err != nil {
		e.Assets.Shutdown()
		e.Audio.Close()
		return nil, eris.Wrap(err, "failed to create stats overlay")
	}
	e.Stats = stats

	e.Systems = []systems.System{
		systems.NewFlyCamera(e.Input),
		systems.Func{Label: "pick", Fn: e.pick},
		systems.NewGravity(),
		systems.Movement{},
	}

	deps := frame.Deps{
		Window:    p.Window,
		Surface:   p.Surface,
		World:     e.World,
		Resources: e.Resources,
		Graph:     e.Graph,
		Input:     e.Input,
		Bus:       e.Bus,
		Assets:    e.Assets,
		Audio:     e.Audio,
		Overlay:   e.Stats,
		Systems:   e.Systems,
	}
	e.Scheduler = frame.New(deps, logger, append([]frame.Option{frame.WithConfig(cfg)}, opts...)...)
	return e, nil
}

// Run runs the frame loop until the window closes, ctx ends or the device is lost for good.
func (e *Engine) Run(ctx context.Context) error {
	return e.Scheduler.Run(ctx)
}

// Shutdown stops the engine if Run has not already done so.
func (e *Engine) Shutdown() error {
	return e.Scheduler.Shutdown()
}

// PickReach is how far the primary action reaches into the scene.
const PickReach = 50

// pick toggles the spin of whatever lies under the screen center when the primary pointer action
// is pressed. The cursor is captured, so the center is where the player aims.
func (e *Engine) pick(w *ecs.World, _ time.Duration) {
	if !e.Input.Snapshot().JustPressed(input.ActionPointerPrimary) {
		return
	}
	cam, ok := render.ActiveCamera(w)
	if !ok {
		return
	}
	width, height := e.Resources.Viewport()
	hit, ok := e.Graph.Pick(w, cam, float64(width)/2, float64(height)/2, width, height, PickReach)
	if !ok {
		return
	}

	if v, ok := ecs.Get[components.Velocity](w, hit.Entity); ok && v.Angular.Len() > 0 {
		ecs.Detach[components.Velocity](w, hit.Entity)
	} else {
		ecs.Attach(w, hit.Entity, components.Velocity{Angular: mgl32.Vec3{0, 1.5, 0}})
	}
	e.Audio.Play("ui/select", audio.Params{
		Category:   audio.CategorySoundEffect,
		Volume:     1,
		Positional: true,
		Position:   hit.Position,
	})
	e.Logger.Debug().Stringer("entity", hit.Entity).Float32("distance", hit.Distance).Msg("picked")
}

// DepthTarget returns the viewport-sized depth texture.
func (e *Engine) DepthTarget() resource.Handle { return e.depth }
