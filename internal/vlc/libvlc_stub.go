//go:build !libvlc

package vlc

import (
	"errors"

	"vidgallery/internal/player"
)

// ErrLibVLCUnavailable is returned when the binary was built without the
// libvlc tag.
var ErrLibVLCUnavailable = errors.New("libvlc backend not compiled in (build with -tags libvlc)")

func newLibVLC(Config) (player.Transport, error) {
	return nil, ErrLibVLCUnavailable
}
