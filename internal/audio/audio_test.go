package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mirage/internal/diag"
	"mirage/internal/events"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoice struct {
	mu      sync.Mutex
	sound   string
	gain    float32
	loop    bool
	stopped bool
	done    bool
}

func (v *fakeVoice) SetGain(g float32) {
	v.mu.Lock()
	v.gain = g
	v.mu.Unlock()
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

func (v *fakeVoice) Done() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

func (v *fakeVoice) finish() {
	v.mu.Lock()
	v.done = true
	v.mu.Unlock()
}

func (v *fakeVoice) state() (gain float32, stopped bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain, v.stopped
}

type fakeBackend struct {
	mu     sync.Mutex
	voices []*fakeVoice
	fail   map[string]error
	block  chan struct{}
}

func (b *fakeBackend) Start(sound string, gain float32, loop bool) (Voice, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[sound]; err != nil {
		return nil, err
	}
	v := &fakeVoice{sound: sound, gain: gain, loop: loop}
	b.voices = append(b.voices, v)
	return v, nil
}

func (b *fakeBackend) voice(i int) *fakeVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voices[i]
}

func newTestScheduler(t *testing.T, b Backend, opts ...Option) *Scheduler {
	t.Helper()
	s := NewScheduler(b, zerolog.New(zerolog.NewTestWriter(t)), opts...)
	t.Cleanup(s.Close)
	return s
}

func TestPlayAndStop(t *testing.T) {
	b := &fakeBackend{}
	s := newTestScheduler(t, b)

	h := s.Play("click", DefaultParams())
	assert.False(t, h.IsZero())
	s.Sync()
	require.Equal(t, 1, s.Playing())
	gain, _ := b.voice(0).state()
	assert.Equal(t, float32(1), gain)

	s.Stop(h)
	s.Stop(Handle{})
	s.Sync()
	assert.Equal(t, 0, s.Playing())
	_, stopped := b.voice(0).state()
	assert.True(t, stopped)
}

func TestHandlesAreUnique(t *testing.T) {
	s := newTestScheduler(t, &fakeBackend{})
	seen := make(map[Handle]bool)
	for range 100 {
		h := s.Play("x", DefaultParams())
		assert.False(t, seen[h])
		seen[h] = true
	}
}

func TestVolumesAndAttenuation(t *testing.T) {
	b := &fakeBackend{}
	s := newTestScheduler(t, b)

	s.SetMasterVolume(0.5)
	s.SetVolume(CategoryMusic, 0.5)
	s.Play("theme", Params{Category: CategoryMusic, Volume: 1, Loop: true})
	s.Play("steps", Params{Category: CategorySoundEffect, Volume: 1, Positional: true, Position: mgl32.Vec3{10, 0, 0}})
	s.Sync()

	music, _ := b.voice(0).state()
	assert.InDelta(t, 0.25, music, 1e-6)
	steps, _ := b.voice(1).state()
	assert.InDelta(t, 0.5*Attenuation(10), steps, 1e-6)

	s.SetListener(mgl32.Vec3{10, 0, 0})
	s.SetVolume(CategoryMusic, 2)
	s.Sync()
	steps, _ = b.voice(1).state()
	assert.InDelta(t, 0.5, steps, 1e-6)
	music, _ = b.voice(0).state()
	assert.InDelta(t, 0.5, music, 1e-6, "volume is clamped to 1")
}

func TestAttenuation(t *testing.T) {
	assert.Equal(t, float32(1), Attenuation(0))
	assert.Equal(t, float32(1), Attenuation(-5))
	assert.InDelta(t, 0.5, Attenuation(10), 1e-6)
	assert.Less(t, Attenuation(100), Attenuation(50))
}

func TestFinishedVoicesAreReaped(t *testing.T) {
	b := &fakeBackend{}
	s := newTestScheduler(t, b, WithReapInterval(time.Millisecond))

	s.Play("once", DefaultParams())
	s.Play("loop", Params{Volume: 1, Loop: true})
	s.Sync()
	require.Equal(t, 2, s.Playing())

	b.voice(0).finish()
	b.voice(1).finish()
	s.Sync()
	assert.Equal(t, 1, s.Playing(), "looping voices stay until stopped")
}

func TestBackendFailureReportedOnce(t *testing.T) {
	sink := diag.NewLog(zerolog.Nop(), 4)
	b := &fakeBackend{fail: map[string]error{"missing": errors.New("no such sound")}}
	s := newTestScheduler(t, b, WithSink(sink))

	s.Play("missing", DefaultParams())
	s.Play("missing", DefaultParams())
	s.Sync()

	assert.Equal(t, 0, s.Playing())
	assert.Equal(t, 1, sink.Count())
	assert.Equal(t, "missing", sink.Recent()[0].Key)
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	sink := diag.NewLog(zerolog.Nop(), 4)
	b := &fakeBackend{block: make(chan struct{})}
	s := newTestScheduler(t, b, WithQueueSize(2), WithSink(sink))

	// The first play blocks the audio goroutine inside the backend.
	s.Play("a", DefaultParams())
	require.Eventually(t, func() bool { return len(s.commands) == 0 }, time.Second, time.Millisecond)

	start := time.Now()
	for range 10 {
		s.Play("b", DefaultParams())
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int64(8), s.Dropped())
	assert.Equal(t, 1, sink.Count())

	close(b.block)
	require.Eventually(t, func() bool { return s.Playing() == 3 }, time.Second, time.Millisecond)
}

func TestCloseStopsVoicesAndDropsLaterCommands(t *testing.T) {
	b := &fakeBackend{}
	s := NewScheduler(b, zerolog.Nop())

	s.Play("loop", Params{Volume: 1, Loop: true})
	s.Sync()
	s.Close()
	s.Close()

	_, stopped := b.voice(0).state()
	assert.True(t, stopped)
	s.Play("late", DefaultParams())
	s.Sync()
	assert.Equal(t, int64(2), s.Dropped())
}

type jumped struct{ Height float32 }

func TestTriggerPlaysOnEvent(t *testing.T) {
	b := &fakeBackend{}
	s := newTestScheduler(t, b)
	bus := events.NewBus()

	unsubscribe := Trigger(bus, s, "jump", func(ev jumped) (Params, bool) {
		return DefaultParams(), ev.Height > 0
	})
	events.Publish(bus, jumped{Height: 1})
	events.Publish(bus, jumped{Height: 0})
	s.Sync()
	assert.Len(t, b.voices, 1)

	unsubscribe()
	events.Publish(bus, jumped{Height: 1})
	s.Sync()
	assert.Len(t, b.voices, 1)
}

func TestSilentBackend(t *testing.T) {
	s := newTestScheduler(t, SilentBackend{Duration: time.Millisecond}, WithReapInterval(time.Millisecond))
	s.Play("x", DefaultParams())
	s.Sync()
	require.Eventually(t, func() bool {
		s.Sync()
		return s.Playing() == 0
	}, time.Second, 2*time.Millisecond)
}
