// Package config loads the vidgallery configuration: a YAML file, then
// VIDGALLERY_* environment overrides. Command-line flags are applied by the
// caller on top of the returned Config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Backend names for Player.Backend.
const (
	BackendSubprocess = "subprocess"
	BackendLibVLC     = "libvlc"
)

// Config is the full runtime configuration.
type Config struct {
	Library    LibraryConfig   `yaml:"library"`
	Thumbnails ThumbnailConfig `yaml:"thumbnails"`
	Player     PlayerConfig    `yaml:"player"`
	Cast       CastConfig      `yaml:"cast"`
	Control    ControlConfig   `yaml:"control"`
	Log        LogConfig       `yaml:"log"`
}

// LibraryConfig describes where videos live and where the index is kept.
type LibraryConfig struct {
	Roots     []string `yaml:"roots"`
	IndexPath string   `yaml:"index_path"`
	Watch     bool     `yaml:"watch"`
}

// ThumbnailConfig configures the thumbnail cache.
type ThumbnailConfig struct {
	CacheDir string        `yaml:"cache_dir"`
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

// PlayerConfig configures the local playback engine.
type PlayerConfig struct {
	Backend           string        `yaml:"backend"`
	VLCPath           string        `yaml:"vlc_path"`
	HTTPPort          int           `yaml:"http_port"`
	AutoLoadSubtitles bool          `yaml:"auto_load_subtitles"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	ViewWidth         int           `yaml:"view_width"`
	ViewHeight        int           `yaml:"view_height"`
}

// CastConfig configures the optional Chromecast target. Empty Device
// disables casting.
type CastConfig struct {
	Device string `yaml:"device"`
	// Transcode is auto, always or never.
	Transcode string `yaml:"transcode"`
	FFmpeg    string `yaml:"ffmpeg"`
}

// ControlConfig configures the HTTP control API. Empty Listen disables it.
type ControlConfig struct {
	Listen         string   `yaml:"listen"`
	RateLimit      int      `yaml:"rate_limit"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	dataDir := defaultDataDir()
	home, _ := os.UserHomeDir()
	return Config{
		Library: LibraryConfig{
			Roots:     []string{filepath.Join(home, "Videos")},
			IndexPath: filepath.Join(dataDir, "index.db"),
			Watch:     true,
		},
		Thumbnails: ThumbnailConfig{
			CacheDir: filepath.Join(dataDir, "thumbs"),
			TTL:      30 * 24 * time.Hour,
		},
		Player: PlayerConfig{
			Backend:           BackendSubprocess,
			HTTPPort:          9090,
			AutoLoadSubtitles: true,
			PollInterval:      500 * time.Millisecond,
			ViewWidth:         1920,
			ViewHeight:        1080,
		},
		Cast: CastConfig{
			Transcode: "auto",
		},
		Control: ControlConfig{
			RateLimit: 600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vidgallery", "config.yaml")
	}
	return "vidgallery.yaml"
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "vidgallery")
	}
	return ".vidgallery"
}

// Load reads path (a missing file yields defaults), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("VIDGALLERY_ROOTS")); v != "" {
		cfg.Library.Roots = filepath.SplitList(v)
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_INDEX_PATH")); v != "" {
		cfg.Library.IndexPath = v
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_BACKEND")); v != "" {
		cfg.Player.Backend = v
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_VLC_PATH")); v != "" {
		cfg.Player.VLCPath = v
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_CAST_DEVICE")); v != "" {
		cfg.Cast.Device = v
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_CONTROL_LISTEN")); v != "" {
		cfg.Control.Listen = v
	}
	if v := strings.TrimSpace(getenv("VIDGALLERY_HTTP_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: VIDGALLERY_HTTP_PORT=%q", ErrInvalid, v)
		}
		cfg.Player.HTTPPort = port
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if len(c.Library.Roots) == 0 {
		return fmt.Errorf("%w: library.roots is empty", ErrInvalid)
	}
	for _, r := range c.Library.Roots {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%w: library.roots contains an empty path", ErrInvalid)
		}
	}
	if c.Library.IndexPath == "" {
		return fmt.Errorf("%w: library.index_path is empty", ErrInvalid)
	}
	switch c.Player.Backend {
	case BackendSubprocess, BackendLibVLC:
	default:
		return fmt.Errorf("%w: player.backend %q (want %s or %s)", ErrInvalid, c.Player.Backend, BackendSubprocess, BackendLibVLC)
	}
	if c.Player.HTTPPort <= 0 || c.Player.HTTPPort > 65535 {
		return fmt.Errorf("%w: player.http_port %d out of range", ErrInvalid, c.Player.HTTPPort)
	}
	if c.Player.PollInterval <= 0 {
		return fmt.Errorf("%w: player.poll_interval must be positive", ErrInvalid)
	}
	if c.Player.ViewWidth <= 0 || c.Player.ViewHeight <= 0 {
		return fmt.Errorf("%w: player view size %dx%d", ErrInvalid, c.Player.ViewWidth, c.Player.ViewHeight)
	}
	switch c.Cast.Transcode {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("%w: cast.transcode %q (want auto, always or never)", ErrInvalid, c.Cast.Transcode)
	}
	if c.Control.RateLimit < 0 {
		return fmt.Errorf("%w: control.rate_limit is negative", ErrInvalid)
	}
	return nil
}
