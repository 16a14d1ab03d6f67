package vlc

import (
	"strings"

	"vidgallery/internal/player"
)

// VLC writes errors to stderr as "[ptr] module type error: message".
// Only error lines are classified; everything else is noise.
var errorPatterns = []struct {
	substr string
	code   player.ErrorCode
}{
	{"no suitable decoder module", player.ErrCodeDecoderInit},
	{"could not initialize decoder", player.ErrCodeDecoderInit},
	{"codec not supported", player.ErrCodeDecoderInit},
	{"unidentified", player.ErrCodeContainerUnsupported},
	{"no suitable demux module", player.ErrCodeContainerUnsupported},
	{"cannot open", player.ErrCodeSource},
	{"cannot be opened", player.ErrCodeSource},
	{"your input can't be opened", player.ErrCodeSource},
	{"no such file", player.ErrCodeSource},
}

// Classify maps one stderr line to a PlaybackError. It returns nil for
// lines that are not playback errors.
func Classify(line string) *player.PlaybackError {
	msg := strings.TrimSpace(line)
	if msg == "" {
		return nil
	}
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "error") {
		return nil
	}
	inputErr := strings.Contains(lower, "input error")
	if i := strings.Index(lower, "error:"); i >= 0 {
		msg = strings.TrimSpace(msg[i+len("error:"):])
		lower = strings.ToLower(msg)
	}
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.substr) {
			return &player.PlaybackError{Code: p.code, Message: msg}
		}
	}
	if inputErr {
		return &player.PlaybackError{Code: player.ErrCodeUnknown, Message: msg}
	}
	return nil
}
