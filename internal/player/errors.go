package player

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned by commands issued after Close.
	ErrReleased = errors.New("player released")
	// ErrNoMedia is returned by engines asked to act on an empty playlist.
	ErrNoMedia = errors.New("no media loaded")
)

// ErrorCode is the category of a playback failure.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeDecoderInit
	ErrCodeContainerUnsupported
	ErrCodeSource
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeDecoderInit:
		return "decoder_init"
	case ErrCodeContainerUnsupported:
		return "container_unsupported"
	case ErrCodeSource:
		return "source"
	default:
		return "unknown"
	}
}

// PlaybackError is an engine failure surfaced through Listener.OnError.
type PlaybackError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *PlaybackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// ErrorNotice renders err as the user-facing notice.
func ErrorNotice(err error) string {
	var pe *PlaybackError
	if errors.As(err, &pe) {
		switch pe.Code {
		case ErrCodeDecoderInit:
			return "Playback error: Format not supported on this device"
		case ErrCodeContainerUnsupported:
			return "Playback error: Video format not supported"
		}
		return "Playback error: " + pe.Message
	}
	return "Playback error: " + err.Error()
}
