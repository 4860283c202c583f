package config

import "sync"

// RuntimeSettings holds settings that input actions may change while the engine runs.
type RuntimeSettings struct {
	mu          sync.RWMutex
	fpsLimit    int
	showOverlay bool
}

var globalRuntimeSettings = &RuntimeSettings{}

// Apply seeds the runtime settings from a loaded Config.
func Apply(cfg Config) {
	SetFPSLimit(cfg.FPSLimit)
}

// GetFPSLimit returns the current frame rate cap, zero for unlimited.
func GetFPSLimit() int {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.fpsLimit
}

// SetFPSLimit sets the frame rate cap
func SetFPSLimit(limit int) {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()

	// Clamp to reasonable values
	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}

	globalRuntimeSettings.fpsLimit = limit
}

// GetShowOverlay returns whether the stats overlay is drawn.
func GetShowOverlay() bool {
	globalRuntimeSettings.mu.RLock()
	defer globalRuntimeSettings.mu.RUnlock()
	return globalRuntimeSettings.showOverlay
}

// SetShowOverlay shows or hides the stats overlay.
func SetShowOverlay(show bool) {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.showOverlay = show
}

// ToggleShowOverlay flips overlay visibility and returns the new value.
func ToggleShowOverlay() bool {
	globalRuntimeSettings.mu.Lock()
	defer globalRuntimeSettings.mu.Unlock()
	globalRuntimeSettings.showOverlay = !globalRuntimeSettings.showOverlay
	return globalRuntimeSettings.showOverlay
}
