package media

import (
	"os"
	"path/filepath"
	"strings"
)

// Sidecar subtitle convention: same directory, same base name, fixed
// extension, format and language.
const (
	SubtitleExt      = ".srt"
	SubtitleMIMEType = "application/x-subrip"
	SubtitleLanguage = "en"
)

// SubtitleTrack is a subtitle file attached to a playable item.
type SubtitleTrack struct {
	Path     string
	MIMEType string
	Language string
}

// Source is one playable item: a file plus an optional subtitle attachment.
type Source struct {
	Path     string
	Subtitle *SubtitleTrack
}

// SidecarPath returns where the sidecar subtitle for videoPath would live.
// A leading dot is part of the name, not an extension separator.
func SidecarPath(videoPath string) string {
	dir, name := filepath.Split(videoPath)
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		name = name[:dot]
	}
	return filepath.Join(dir, name+SubtitleExt)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// NewSource builds a Source for path. When withSubtitle is set and exists
// reports a sidecar file, the sidecar is attached with the fixed format
// and language.
func NewSource(path string, withSubtitle bool, exists func(string) bool) Source {
	src := Source{Path: path}
	if !withSubtitle {
		return src
	}
	if exists == nil {
		exists = FileExists
	}
	if sub := SidecarPath(path); exists(sub) {
		src.Subtitle = &SubtitleTrack{
			Path:     sub,
			MIMEType: SubtitleMIMEType,
			Language: SubtitleLanguage,
		}
	}
	return src
}
