// Package media provides centralized media type detection for the gallery
// and player, plus the sidecar subtitle convention and display formatting.
package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// Type represents the kind of media file.
type Type int

const (
	Unknown Type = iota
	Video
	Subtitle
)

func (t Type) String() string {
	switch t {
	case Video:
		return "video"
	case Subtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

// Video file extensions.
var videoExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".ts":   true,
	".m4v":  true,
	".3gp":  true,
	".flv":  true,
	".wmv":  true,
	".mpg":  true,
	".mpeg": true,
}

// Detect returns the media type for a given file path based on extension.
func Detect(path string) Type {
	ext := strings.ToLower(filepath.Ext(path))
	if videoExts[ext] {
		return Video
	}
	if ext == SubtitleExt {
		return Subtitle
	}
	return Unknown
}

// IsVideo reports whether the file has a recognized video extension.
func IsVideo(path string) bool {
	return Detect(path) == Video
}

// ContentType returns the MIME type for a video path, falling back to
// application/octet-stream.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mkv":
		return "video/x-matroska"
	case ".ts":
		return "video/mp2t"
	case ".webm":
		return "video/webm"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return strings.TrimSpace(strings.Split(t, ";")[0])
	}
	return "application/octet-stream"
}

// Name returns the last path segment.
func Name(path string) string {
	return filepath.Base(path)
}
