// Package frame runs the engine loop.
//
// One Tick is PollEvents, Update, BuildGraph, Submit and Present, all on the calling goroutine,
// which must be the render thread. Run ticks until the window closes, the context ends or the device
// is lost for good, then shuts down: audio stops, asset work is cancelled, outstanding GPU work is
// drained and only then are GPU objects released.
package frame

import (
	"context"
	"time"

	"mirage/internal/asset"
	"mirage/internal/audio"
	"mirage/internal/components"
	"mirage/internal/config"
	"mirage/internal/ecs"
	"mirage/internal/events"
	"mirage/internal/fault"
	"mirage/internal/gpu"
	"mirage/internal/input"
	"mirage/internal/overlay"
	"mirage/internal/platform"
	"mirage/internal/profiling"
	"mirage/internal/render"
	"mirage/internal/resource"
	"mirage/internal/systems"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Phase is the scheduler's position in the frame state machine.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhasePollEvents
	PhaseUpdate
	PhaseBuildGraph
	PhaseSubmit
	PhasePresent
	PhaseShutdown
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePollEvents:
		return "poll-events"
	case PhaseUpdate:
		return "update"
	case PhaseBuildGraph:
		return "build-graph"
	case PhaseSubmit:
		return "submit"
	case PhasePresent:
		return "present"
	case PhaseShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Deps are the collaborators a Scheduler drives. Assets, Audio and Overlay may be nil.
type Deps struct {
	Window    platform.Window
	Surface   gpu.Surface
	World     *ecs.World
	Resources *resource.Manager
	Graph     *render.Graph
	Input     *input.Router
	Bus       *events.Bus
	Assets    *asset.Loader
	Audio     *audio.Scheduler
	Overlay   overlay.Overlay
	Systems   []systems.System
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig applies the timing and recovery settings of cfg.
func WithConfig(cfg config.Config) Option {
	return func(s *Scheduler) {
		s.maxStep = cfg.MaxStep
		s.fixedStep = cfg.FixedStep
		s.retries = cfg.DeviceRetries
		s.retryInterval = cfg.DeviceRetryInterval
		s.shutdownTimeout = cfg.ShutdownTimeout
		s.slowFrame = cfg.SlowFrame
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithMaxStep sets the upper bound of the update delta.
func WithMaxStep(d time.Duration) Option {
	return func(s *Scheduler) { s.maxStep = d }
}

// WithFixedStep makes every update receive d instead of the measured delta.
func WithFixedStep(d time.Duration) Option {
	return func(s *Scheduler) { s.fixedStep = d }
}

// WithDeviceRetry sets how often and how fast device recovery is retried.
func WithDeviceRetry(retries int, interval time.Duration) Option {
	return func(s *Scheduler) { s.retries, s.retryInterval = retries, interval }
}

// WithShutdownTimeout bounds the GPU drain on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.shutdownTimeout = d }
}

// WithSlowFrame sets the frame time above which a warning with the frame's top timings is logged.
// Zero disables the warning.
func WithSlowFrame(d time.Duration) Option {
	return func(s *Scheduler) { s.slowFrame = d }
}

// Scheduler owns the frame loop.
type Scheduler struct {
	Deps
	logger  zerolog.Logger
	clock   Clock
	limiter *Limiter

	maxStep         time.Duration
	fixedStep       time.Duration
	retries         int
	retryInterval   time.Duration
	shutdownTimeout time.Duration
	slowFrame       time.Duration

	phase       Phase
	frame       uint64
	last        time.Time
	lastDelta   time.Duration
	paused      bool
	minimized   bool
	deviceLost  bool
	shutdownErr error
	fps         fpsCounter
}

// New returns a scheduler in PhaseInit.
func New(deps Deps, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		Deps:            deps,
		logger:          logger.With().Str("component", "frame").Logger(),
		clock:           SystemClock{},
		maxStep:         250 * time.Millisecond,
		retries:         5,
		retryInterval:   100 * time.Millisecond,
		shutdownTimeout: 2 * time.Second,
		slowFrame:       50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Input == nil {
		s.Input = input.NewRouter()
	}
	if s.Bus == nil {
		s.Bus = events.NewBus()
	}
	s.limiter = NewLimiter(s.clock)
	return s
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// Frame returns the number of frames started.
func (s *Scheduler) Frame() uint64 { return s.frame }

// LastDelta returns the delta the most recent update received.
func (s *Scheduler) LastDelta() time.Duration { return s.lastDelta }

// FPS returns the frame rate measured over the last full second.
func (s *Scheduler) FPS() float64 { return s.fps.rate }

// Paused reports whether systems are suspended.
func (s *Scheduler) Paused() bool { return s.paused }

// Run ticks until shutdown and returns the first fatal error, if any.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Msg("frame loop started")
	for {
		more, err := s.Tick(ctx)
		if err != nil {
			return err
		}
		if !more {
			s.logger.Info().Uint64("frames", s.frame).Msg("frame loop stopped")
			return nil
		}
	}
}

// Tick runs one frame. It returns false once the scheduler has shut down. A close request or a
// cancelled context shuts down cleanly; exhausted device recovery shuts down and returns
// fault.ErrDeviceUnrecoverable.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if s.phase == PhaseShutdown {
		return false, s.shutdownErr
	}
	profiling.ResetFrame()
	s.frame++
	start := s.clock.Now()

	s.phase = PhasePollEvents
	if closing := s.pollEvents(); closing || ctx.Err() != nil {
		return false, s.Shutdown()
	}

	s.phase = PhaseUpdate
	snap := s.update(start)

	if !s.minimized {
		s.phase = PhaseBuildGraph
		fr := s.buildGraph(snap)

		s.phase = PhaseSubmit
		if err := s.submitAndPresent(ctx, &fr); err != nil {
			s.deviceLost = eris.Is(err, fault.ErrDeviceUnrecoverable)
			s.logger.Error().Err(err).Msg("rendering stopped")
			if shutdownErr := s.Shutdown(); shutdownErr != nil {
				s.logger.Warn().Err(shutdownErr).Msg("shutdown after submission failure")
			}
			s.shutdownErr = err
			return false, err
		}
	}

	s.Input.PostUpdate()
	if elapsed := s.clock.Now().Sub(start); s.slowFrame > 0 && elapsed > s.slowFrame {
		s.logger.Warn().
			Dur("elapsed", elapsed).
			Uint64("frame", s.frame).
			Str("top", profiling.TopN(5)).
			Msg("slow frame")
	}
	s.limiter.Wait(s.paused)
	s.fps.tick(s.clock.Now())
	return true, nil
}

// pollEvents drains the window without blocking and reports whether a close was requested.
func (s *Scheduler) pollEvents() bool {
	defer profiling.Track("frame.events")()

	closing := false
	for _, ev := range s.Window.PollEvents() {
		switch ev.Kind {
		case platform.EventResize:
			s.resize(ev.Width, ev.Height)
		case platform.EventClose:
			closing = true
			events.Publish(s.Bus, events.CloseRequested{})
		case platform.EventKey:
			s.Input.HandleKey(ev.Key, ev.Pressed)
			events.Publish(s.Bus, events.KeyInput{Key: int(ev.Key), Pressed: ev.Pressed})
		case platform.EventPointer:
			s.Input.HandlePointer(ev.X, ev.Y, ev.Button, ev.Pressed, ev.Moved)
			events.Publish(s.Bus, events.PointerInput{X: ev.X, Y: ev.Y, Button: int(ev.Button), Pressed: ev.Pressed, Moved: ev.Moved})
		}
	}
	if s.Input.Snapshot().JustPressed(input.ActionQuit) {
		closing = true
		events.Publish(s.Bus, events.CloseRequested{})
	}
	return closing
}

// resize propagates a new framebuffer size. A zero size means the window is minimized; rendering
// pauses until the next non-zero size.
func (s *Scheduler) resize(width, height int) {
	if width <= 0 || height <= 0 {
		s.minimized = true
		return
	}
	s.minimized = false
	if err := s.Surface.Resize(width, height); err != nil {
		s.logger.Warn().Err(err).Int("width", width).Int("height", height).Msg("surface resize failed")
	}
	if err := s.Resources.Resize(width, height); err != nil {
		s.logger.Warn().Err(err).Msg("viewport resources resize failed")
	}
	for _, cam := range ecs.Query[components.Camera](s.World) {
		cam.SetViewport(width, height)
	}
	events.Publish(s.Bus, events.WindowResized{Width: width, Height: height})
}

// delta returns the update step for a frame starting at now, clamped to [0, maxStep].
func (s *Scheduler) delta(now time.Time) time.Duration {
	var dt time.Duration
	if !s.last.IsZero() {
		dt = now.Sub(s.last)
	}
	s.last = now
	if s.fixedStep > 0 {
		dt = s.fixedStep
	}
	return min(max(dt, 0), s.maxStep)
}

func (s *Scheduler) update(now time.Time) input.Snapshot {
	defer profiling.Track("frame.update")()

	dt := s.delta(now)
	s.lastDelta = dt

	if n := s.Resources.Collect(); n > 0 {
		s.logger.Debug().Int("destroyed", n).Msg("collected retired resources")
	}
	if s.Assets != nil {
		s.Assets.Drain()
	}

	snap := s.Input.Snapshot()
	if snap.JustPressed(input.ActionPause) {
		s.paused = !s.paused
		s.logger.Info().Bool("paused", s.paused).Msg("simulation pause toggled")
	}
	if !s.paused {
		for _, sys := range s.Systems {
			done := profiling.Track("system." + sys.Name())
			sys.Update(s.World, dt)
			done()
		}
	}
	if s.Audio != nil {
		if cam, ok := render.ActiveCamera(s.World); ok {
			if tr, ok := ecs.Get[components.Transform](s.World, cam); ok {
				s.Audio.SetListener(tr.Position)
			}
		}
	}
	events.Publish(s.Bus, events.Update{Frame: s.frame, Delta: dt})
	return snap
}

func (s *Scheduler) buildGraph(snap input.Snapshot) render.Frame {
	width, height := s.Surface.Size()
	cam, _ := render.ActiveCamera(s.World)
	fr := s.Graph.Build(s.World, cam, width, height)
	if s.Overlay != nil {
		done := profiling.Track("frame.overlay")
		s.Graph.AppendOverlay(&fr, s.Overlay.Compose(snap, width, height))
		done()
	}
	return fr
}

// submitAndPresent encodes and submits fr and presents it. Device loss at any step is recovered
// and the frame dropped; only an unrecoverable device is returned.
func (s *Scheduler) submitAndPresent(ctx context.Context, fr *render.Frame) error {
	if err := s.Surface.Acquire(); err != nil {
		return s.recover(ctx, err)
	}

	list, refs := s.Graph.Encode(fr)
	done := profiling.Track("frame.submit")
	_, err := s.Resources.Submit(&list, refs)
	done()
	if err != nil {
		return s.recover(ctx, err)
	}

	s.phase = PhasePresent
	done = profiling.Track("frame.present")
	err = s.Surface.Present()
	done()
	if err != nil {
		return s.recover(ctx, err)
	}
	events.Publish(s.Bus, events.Render{Frame: s.frame, Draws: list.DrawCount()})
	return nil
}

// recover rebuilds the surface and viewport resources after device or surface loss, retrying with
// exponential backoff. Errors that are not device loss are returned as they are.
func (s *Scheduler) recover(ctx context.Context, cause error) error {
	if !fault.IsRecoverableDevice(cause) {
		return eris.Wrap(cause, "frame submission failed")
	}
	s.logger.Warn().Err(cause).Msg("device lost, recovering")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.retries, 0))), ctx)

	attempts := 0
	op := func() error {
		attempts++
		if err := s.Surface.Recreate(); err != nil {
			return retryable(err)
		}
		width, height := s.Surface.Size()
		if err := s.Resources.Resize(width, height); err != nil {
			return retryable(err)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", next).Msg("device recovery failed")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return eris.Wrapf(fault.ErrDeviceUnrecoverable, "after %d attempts: %v", attempts, err)
	}
	s.logger.Info().Int("attempts", attempts).Msg("device recovered")
	return nil
}

func retryable(err error) error {
	if fault.IsRecoverableDevice(err) {
		return err
	}
	return backoff.Permanent(err)
}

// Shutdown stops audio, cancels asset loading, waits for the GPU to finish outstanding work and
// releases every GPU object. It is idempotent. If the drain times out the objects are not
// released, since the GPU may still be using them.
func (s *Scheduler) Shutdown() error {
	if s.phase == PhaseShutdown {
		return s.shutdownErr
	}
	s.phase = PhaseShutdown
	s.logger.Info().Msg("shutting down")

	if s.Audio != nil {
		s.Audio.Close()
	}
	if s.Assets != nil {
		s.Assets.Shutdown()
	}
	// Overlays that own resources give them back while the tables are still live.
	if c, ok := s.Overlay.(interface{ Close() }); ok {
		c.Close()
	}

	// A lost device executes nothing further, so there is nothing to wait for.
	if !s.deviceLost {
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.Resources.Drain(ctx); err != nil {
			s.shutdownErr = eris.Wrap(err, "gpu drain on shutdown")
			s.logger.Error().Err(err).Msg("gpu did not drain, leaking gpu objects")
			return s.shutdownErr
		}
	}
	s.Resources.Release()
	return nil
}

// fpsCounter measures frames per second over one-second windows.
type fpsCounter struct {
	start  time.Time
	frames int
	rate   float64
}

func (c *fpsCounter) tick(now time.Time) {
	if c.start.IsZero() {
		c.start = now
	}
	c.frames++
	if elapsed := now.Sub(c.start); elapsed >= time.Second {
		c.rate = float64(c.frames) / elapsed.Seconds()
		c.frames = 0
		c.start = now
	}
}
