package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file use t.Setenv and the package-level runtime settings, so none run in parallel.

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.WindowWidth)
	assert.Equal(t, 720, cfg.WindowHeight)
	assert.Equal(t, 250*time.Millisecond, cfg.MaxStep)
	assert.Zero(t, cfg.FixedStep)
	assert.Equal(t, 5, cfg.DeviceRetries)
	assert.Equal(t, "assets", cfg.AssetRoot)
	assert.GreaterOrEqual(t, cfg.Workers(), 1)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MIRAGE_MAX_STEP", "100ms")
	t.Setenv("MIRAGE_FIXED_STEP", "16ms")
	t.Setenv("MIRAGE_ASSET_WORKERS", "3")
	t.Setenv("MIRAGE_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.MaxStep)
	assert.Equal(t, 16*time.Millisecond, cfg.FixedStep)
	assert.Equal(t, 3, cfg.Workers())
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero max step", "MIRAGE_MAX_STEP", "0s"},
		{"fixed above max", "MIRAGE_FIXED_STEP", "1s"},
		{"negative fps", "MIRAGE_FPS_LIMIT", "-1"},
		{"bad level", "MIRAGE_LOG_LEVEL", "chatty"},
		{"bad format", "MIRAGE_LOG_FORMAT", "xml"},
		{"bad profile", "MIRAGE_PROFILE", "block"},
		{"unparsable duration", "MIRAGE_MAX_STEP", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestFPSLimitClamp(t *testing.T) {
	t.Cleanup(func() { SetFPSLimit(0) })

	SetFPSLimit(-20)
	assert.Equal(t, 0, GetFPSLimit())
	SetFPSLimit(5000)
	assert.Equal(t, 1000, GetFPSLimit())

	Apply(Config{FPSLimit: 144})
	assert.Equal(t, 144, GetFPSLimit())
}

func TestToggleShowOverlay(t *testing.T) {
	t.Cleanup(func() { SetShowOverlay(false) })

	SetShowOverlay(false)
	assert.True(t, ToggleShowOverlay())
	assert.True(t, GetShowOverlay())
	assert.False(t, ToggleShowOverlay())
}
