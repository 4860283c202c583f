// Package audio schedules sound playback off the render thread.
//
// Play and Stop only enqueue commands; a single goroutine owns the playback table and talks to the
// Backend. Failures are reported to a diag.Sink and never returned to the caller.
package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"mirage/internal/diag"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const diagSource = "audio"

// Category groups sounds under one volume control.
type Category uint8

const (
	CategoryMusic Category = iota
	CategorySoundEffect
	CategoryAmbient
	CategoryVoice
	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryMusic:
		return "music"
	case CategorySoundEffect:
		return "sfx"
	case CategoryAmbient:
		return "ambient"
	case CategoryVoice:
		return "voice"
	}
	return "unknown"
}

// Handle identifies one playback.
type Handle uuid.UUID

func (h Handle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Params describe how a sound plays.
type Params struct {
	Category Category
	// Volume scales the sound before category and master volume; 1 is unchanged.
	Volume float32
	Loop   bool
	// Positional sounds attenuate with distance from the listener.
	Positional bool
	Position   mgl32.Vec3
}

// DefaultParams plays a sound effect once at full volume.
func DefaultParams() Params {
	return Params{Category: CategorySoundEffect, Volume: 1}
}

// Attenuation returns the gain factor for a sound d units from the listener.
func Attenuation(d float32) float32 {
	return min(1, 1/(1+0.1*max(d, 0)))
}

// Voice is a sound the backend is playing.
type Voice interface {
	SetGain(gain float32)
	Stop()
	// Done reports whether a non-looping voice finished on its own.
	Done() bool
}

// Backend starts voices. It is only called from the scheduler's goroutine.
type Backend interface {
	Start(sound string, gain float32, loop bool) (Voice, error)
}

type commandKind uint8

const (
	cmdPlay commandKind = iota
	cmdStop
	cmdStopAll
	cmdVolume
	cmdMaster
	cmdListener
	cmdSync
)

type command struct {
	kind     commandKind
	handle   Handle
	sound    string
	params   Params
	category Category
	value    float32
	position mgl32.Vec3
	done     chan struct{}
}

type playback struct {
	sound  string
	params Params
	voice  Voice
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQueueSize bounds the command queue.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) { s.queueSize = n }
}

// WithSink sets where playback failures are reported.
func WithSink(sink diag.Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

// WithReapInterval sets how often finished voices are removed from the table.
func WithReapInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.reapEvery = d }
}

// Scheduler accepts playback commands from any goroutine.
type Scheduler struct {
	logger    zerolog.Logger
	backend   Backend
	sink      diag.Sink
	queueSize int
	reapEvery time.Duration

	commands chan command
	quit     chan struct{}
	exited   chan struct{}
	closed   atomic.Bool
	stop     sync.Once

	dropped atomic.Int64
	playing atomic.Int32

	// Owned by the audio goroutine.
	voices   map[Handle]*playback
	master   float32
	volumes  [categoryCount]float32
	listener mgl32.Vec3
}

// NewScheduler starts the audio goroutine.
func NewScheduler(backend Backend, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:    logger.With().Str("component", "audio").Logger(),
		backend:   backend,
		sink:      diag.Nop{},
		queueSize: 128,
		reapEvery: 100 * time.Millisecond,
		quit:      make(chan struct{}),
		exited:    make(chan struct{}),
		voices:    make(map[Handle]*playback),
		master:    1,
	}
	for i := range s.volumes {
		s.volumes[i] = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	s.commands = make(chan command, s.queueSize)
	go s.run()
	return s
}

// enqueue never blocks. A full queue or closed scheduler drops the command and reports it.
func (s *Scheduler) enqueue(c command) bool {
	if s.closed.Load() {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.commands <- c:
		return true
	default:
		s.dropped.Add(1)
		s.sink.Report(diag.Diagnostic{
			Source: diagSource,
			Key:    "queue-full",
			Err:    eris.Errorf("audio command queue full (%d)", s.queueSize),
		})
		return false
	}
}

// Play starts sound and returns its handle at once. The handle is valid even if the command was
// dropped; stopping it is then a no-op.
func (s *Scheduler) Play(sound string, params Params) Handle {
	h := Handle(uuid.New())
	s.enqueue(command{kind: cmdPlay, handle: h, sound: sound, params: params})
	return h
}

// Stop stops a playback. Unknown or finished handles are ignored.
func (s *Scheduler) Stop(h Handle) {
	s.enqueue(command{kind: cmdStop, handle: h})
}

// StopAll stops every playback.
func (s *Scheduler) StopAll() {
	s.enqueue(command{kind: cmdStopAll})
}

// SetVolume sets the volume of a category, clamped to [0, 1].
func (s *Scheduler) SetVolume(c Category, v float32) {
	s.enqueue(command{kind: cmdVolume, category: c, value: mgl32.Clamp(v, 0, 1)})
}

// SetMasterVolume sets the volume applied to every category, clamped to [0, 1].
func (s *Scheduler) SetMasterVolume(v float32) {
	s.enqueue(command{kind: cmdMaster, value: mgl32.Clamp(v, 0, 1)})
}

// SetListener moves the listener that positional sounds attenuate from.
func (s *Scheduler) SetListener(pos mgl32.Vec3) {
	s.enqueue(command{kind: cmdListener, position: pos})
}

// Sync blocks until every command enqueued before it has been applied, or the scheduler closed.
func (s *Scheduler) Sync() {
	done := make(chan struct{})
	if !s.enqueue(command{kind: cmdSync, done: done}) {
		return
	}
	select {
	case <-done:
	case <-s.exited:
	}
}

// Playing returns the number of live playbacks as of the last applied command.
func (s *Scheduler) Playing() int { return int(s.playing.Load()) }

// Dropped returns how many commands were dropped.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

// Close stops every voice and the audio goroutine. Commands still queued are discarded.
func (s *Scheduler) Close() {
	s.stop.Do(func() {
		s.closed.Store(true)
		close(s.quit)
		<-s.exited
	})
}

func (s *Scheduler) run() {
	defer close(s.exited)
	reap := time.NewTicker(s.reapEvery)
	defer reap.Stop()

	for {
		select {
		case c := <-s.commands:
			s.apply(c)
		case <-reap.C:
			s.reap()
		case <-s.quit:
			s.stopAll()
			s.playing.Store(0)
			s.logger.Debug().Int64("dropped", s.dropped.Load()).Msg("audio stopped")
			return
		}
		s.playing.Store(int32(len(s.voices)))
	}
}

func (s *Scheduler) apply(c command) {
	switch c.kind {
	case cmdPlay:
		pb := &playback{sound: c.sound, params: c.params}
		voice, err := s.backend.Start(c.sound, s.gain(c.params), c.params.Loop)
		if err != nil {
			s.sink.Report(diag.Diagnostic{
				Source: diagSource,
				Key:    c.sound,
				Err:    eris.Wrapf(err, "play %s", c.sound),
			})
			return
		}
		pb.voice = voice
		s.voices[c.handle] = pb

	case cmdStop:
		if pb, ok := s.voices[c.handle]; ok {
			pb.voice.Stop()
			delete(s.voices, c.handle)
		}

	case cmdStopAll:
		s.stopAll()

	case cmdVolume:
		if c.category < categoryCount {
			s.volumes[c.category] = c.value
			s.updateGains()
		}

	case cmdMaster:
		s.master = c.value
		s.updateGains()

	case cmdListener:
		s.listener = c.position
		s.updateGains()

	case cmdSync:
		s.reap()
		s.playing.Store(int32(len(s.voices)))
		close(c.done)
	}
}

func (s *Scheduler) gain(p Params) float32 {
	g := p.Volume * s.master
	if p.Category < categoryCount {
		g *= s.volumes[p.Category]
	}
	if p.Positional {
		g *= Attenuation(p.Position.Sub(s.listener).Len())
	}
	return g
}

func (s *Scheduler) updateGains() {
	for _, pb := range s.voices {
		pb.voice.SetGain(s.gain(pb.params))
	}
}

func (s *Scheduler) reap() {
	for h, pb := range s.voices {
		if !pb.params.Loop && pb.voice.Done() {
			delete(s.voices, h)
		}
	}
}

func (s *Scheduler) stopAll() {
	for h, pb := range s.voices {
		pb.voice.Stop()
		delete(s.voices, h)
	}
}
