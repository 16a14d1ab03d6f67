package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendSubprocess, cfg.Player.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Player.PollInterval)
	assert.True(t, cfg.Player.AutoLoadSubtitles)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
library:
  roots: [/srv/videos, /mnt/usb]
  index_path: /tmp/idx.db
player:
  backend: libvlc
  http_port: 9191
  poll_interval: 250ms
cast:
  device: 192.168.1.20:8009
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/videos", "/mnt/usb"}, cfg.Library.Roots)
	assert.Equal(t, BackendLibVLC, cfg.Player.Backend)
	assert.Equal(t, 9191, cfg.Player.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.Player.PollInterval)
	assert.Equal(t, "192.168.1.20:8009", cfg.Cast.Device)
	// untouched sections keep their defaults
	assert.Equal(t, 1920, cfg.Player.ViewWidth)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player:\n  bogus: 1\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"VIDGALLERY_ROOTS":     "/a" + string(os.PathListSeparator) + "/b",
		"VIDGALLERY_HTTP_PORT": "8088",
	}
	require.NoError(t, applyEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, []string{"/a", "/b"}, cfg.Library.Roots)
	assert.Equal(t, 8088, cfg.Player.HTTPPort)

	env["VIDGALLERY_HTTP_PORT"] = "eighty"
	err := applyEnv(&cfg, func(k string) string { return env[k] })
	require.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no roots", func(c *Config) { c.Library.Roots = nil }},
		{"blank root", func(c *Config) { c.Library.Roots = []string{" "} }},
		{"bad backend", func(c *Config) { c.Player.Backend = "mpv" }},
		{"bad port", func(c *Config) { c.Player.HTTPPort = 70000 }},
		{"zero poll", func(c *Config) { c.Player.PollInterval = 0 }},
		{"zero view", func(c *Config) { c.Player.ViewWidth = 0 }},
		{"bad transcode", func(c *Config) { c.Cast.Transcode = "sometimes" }},
		{"negative rate limit", func(c *Config) { c.Control.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
