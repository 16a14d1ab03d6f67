// Package vlc provides the local playback engine.
//
// The default backend runs VLC as a subprocess and drives it through the
// Lua HTTP interface bound to loopback, so no CGO is required. Builds with
// the libvlc tag can use libVLC's ListPlayer in-process instead.
package vlc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"vidgallery/internal/media"
	"vidgallery/internal/player"
)

// Backend names.
const (
	BackendSubprocess = "subprocess"
	BackendLibVLC     = "libvlc"
)

// ErrNotFound is returned when no VLC executable can be located.
var ErrNotFound = errors.New("vlc not found")

// Config configures the local engine.
type Config struct {
	Backend string
	// Path is the VLC executable; empty means FindVLC.
	Path string
	// HTTPPort is the loopback port of the VLC HTTP interface.
	HTTPPort int
	// Password protects the HTTP interface. Empty generates one per process.
	Password   string
	Fullscreen bool
	// ExtraArgs are appended to the VLC command line before the HTTP flags.
	ExtraArgs []string
}

// New creates the engine selected by cfg.Backend.
func New(cfg Config) (player.Transport, error) {
	switch cfg.Backend {
	case "", BackendSubprocess:
		return NewSubprocess(cfg)
	case BackendLibVLC:
		return newLibVLC(cfg)
	default:
		return nil, fmt.Errorf("unknown vlc backend %q", cfg.Backend)
	}
}

// FindVLC locates the VLC executable. On Linux cvlc is preferred since it
// shows only the video with no Qt interface.
func FindVLC() (string, error) {
	if runtime.GOOS == "linux" {
		if path, err := exec.LookPath("cvlc"); err == nil {
			return path, nil
		}
	}
	if path, err := exec.LookPath("vlc"); err == nil {
		return path, nil
	}

	var candidates []string
	switch runtime.GOOS {
	case "windows":
		candidates = []string{
			`C:\Program Files\VideoLAN\VLC\vlc.exe`,
			`C:\Program Files (x86)\VideoLAN\VLC\vlc.exe`,
		}
	case "darwin":
		candidates = []string{"/Applications/VLC.app/Contents/MacOS/VLC"}
	default:
		candidates = []string{"/usr/bin/cvlc", "/usr/bin/vlc", "/snap/bin/vlc"}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: install VLC or set player.vlc_path", ErrNotFound)
}

// baseArgs are the playback flags shared by every platform. Playlist
// advance is left to VLC; looping and shuffling are off so item order
// matches the gallery.
// subtitleOption is the per-item input option that attaches a sidecar
// subtitle, or "" when the item has none. Both backends pass it verbatim.
func subtitleOption(src media.Source) string {
	if src.Subtitle == nil || src.Subtitle.Path == "" {
		return ""
	}
	return ":sub-file=" + src.Subtitle.Path
}

func baseArgs(fullscreen bool) []string {
	args := []string{
		"--no-video-title-show",
		"--no-osd",
		"--no-loop",
		"--no-repeat",
		"--no-random",

		"--avcodec-hw=any",
		"--avcodec-threads=0",
		"--avcodec-skiploopfilter=0",

		"--file-caching=3000",
		"--clock-jitter=0",
		"--deinterlace=0",
	}
	if runtime.GOOS == "windows" {
		args = append(args, "--no-qt-privacy-ask", "--no-qt-fs-controller", "--vout=direct3d11")
	}
	if fullscreen {
		args = append(args, "--fullscreen")
	}
	return args
}

// subprocessArgs adds the HTTP control interface on loopback.
func subprocessArgs(cfg Config) []string {
	args := baseArgs(cfg.Fullscreen)
	args = append(args, cfg.ExtraArgs...)
	return append(args,
		"--extraintf=http",
		"--http-host=127.0.0.1",
		"--http-port="+strconv.Itoa(cfg.HTTPPort),
		"--http-password="+cfg.Password,
	)
}
