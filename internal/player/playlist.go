package player

import (
	"fmt"

	"vidgallery/internal/media"
)

// BuildSources turns paths into media sources. With autoLoadSubtitles,
// each item whose sidecar subtitle exists gets it attached.
func BuildSources(paths []string, autoLoadSubtitles bool, exists func(string) bool) []media.Source {
	if exists == nil {
		exists = media.FileExists
	}
	out := make([]media.Source, len(paths))
	for i, p := range paths {
		out[i] = media.NewSource(p, autoLoadSubtitles, exists)
	}
	return out
}

// WithoutSubtitles strips subtitle attachments, for engines that cannot
// render them.
func WithoutSubtitles(items []media.Source) []media.Source {
	out := make([]media.Source, len(items))
	for i, it := range items {
		out[i] = media.Source{Path: it.Path}
	}
	return out
}

// ClampIndex maps an out-of-range start index onto the first item. It
// returns -1 for an empty list.
func ClampIndex(index, n int) int {
	if n == 0 {
		return -1
	}
	if index < 0 || index >= n {
		return 0
	}
	return index
}

// Rebuild reloads items into t while keeping the current item, position
// and play state. The reload is a single Load call so no intermediate
// state (such as item 0) is ever visible.
func Rebuild(t Transport, items []media.Source) (Snapshot, error) {
	snap := Capture(t)
	index := snap.Index
	pos := snap.PositionMs
	if index < 0 || index >= len(items) {
		index, pos = ClampIndex(index, len(items)), 0
	}
	if index < 0 {
		return snap, ErrNoMedia
	}
	if err := t.Load(items, index, pos); err != nil {
		return snap, fmt.Errorf("reload playlist: %w", err)
	}
	if snap.Playing {
		if err := t.Play(); err != nil {
			return snap, fmt.Errorf("resume after reload: %w", err)
		}
	}
	return snap, nil
}
