// Package library implements the video index: a filesystem scanner that
// feeds a SQLite table of video files, queried newest-first, plus an
// fsnotify watcher that keeps the index current.
package library

import (
	"errors"
	"time"
)

// ErrPermissionDenied is returned when a library root cannot be read
// because the process lacks permission.
var ErrPermissionDenied = errors.New("permission denied")

// User-visible notices raised by Load.
const (
	NoticePermissionDenied = "Permission denied! Cannot access videos."
	NoticeNoVideos         = "No videos found on device"
)

// Video is one indexed video file. Path is its identity; the remaining
// fields are derived from the filesystem at scan time.
type Video struct {
	Path       string
	Root       string
	Filename   string
	SizeBytes  int64
	ModTime    time.Time
	DurationMs int64 // 0 until probed
}

// ScanResult summarizes one scan over all roots.
type ScanResult struct {
	Started      time.Time
	Finished     time.Time
	Indexed      int
	Pruned       int64
	Skipped      int
	Errors       int
	DeniedRoots  []string
	MissingRoots []string
}

// AllDenied reports whether every scanned root was refused.
func (r ScanResult) AllDenied(roots int) bool {
	return roots > 0 && len(r.DeniedRoots) == roots
}

// LoadResult is what the gallery receives from the index.
type LoadResult struct {
	Paths  []string
	Notice string // empty when there is nothing to tell the user
	Denied bool
}
