package audio

import (
	"sync"
	"time"
)

// SilentBackend plays nothing. Non-looping voices finish after Duration, so the playback table
// behaves as it would with real output.
type SilentBackend struct {
	Duration time.Duration
}

func (b SilentBackend) Start(string, float32, bool) (Voice, error) {
	return &silentVoice{end: time.Now().Add(b.Duration)}, nil
}

type silentVoice struct {
	mu      sync.Mutex
	end     time.Time
	stopped bool
}

func (v *silentVoice) SetGain(float32) {}

func (v *silentVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

func (v *silentVoice) Done() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped || !time.Now().Before(v.end)
}
