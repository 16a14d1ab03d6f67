// Package player drives playback of an ordered list of videos: the
// transport abstraction shared by local and cast engines, the gesture and
// control arithmetic, playlist rebuilding, local/cast hand-off, and the
// Screen event loop that owns all of it.
package player

import "vidgallery/internal/media"

// TrackType classifies a track group.
type TrackType int

const (
	TrackUnknown TrackType = iota
	TrackVideo
	TrackAudio
	TrackText
)

// Track describes one selectable track inside a group.
type Track struct {
	ID       int
	Language string
	Label    string
	MIMEType string
	Selected bool
}

// TrackGroup is a set of alternative tracks of the same type.
type TrackGroup struct {
	Type   TrackType
	Tracks []Track
}

// Listener receives engine events. Any field may be nil. Implementations
// may invoke callbacks from their own goroutines.
type Listener struct {
	OnError            func(err *PlaybackError)
	OnItemTransition   func(index int)
	OnReady            func()
	OnIsPlayingChanged func(playing bool)
}

// Transport is the playback engine capability set. Local and cast engines
// both implement it so command code is written once.
//
// Load replaces the item list and positions the engine at (index,
// positionMs) without starting playback. Times are milliseconds; Duration
// returns 0 or less while unknown.
type Transport interface {
	Load(items []media.Source, index int, positionMs int64) error
	Play() error
	Pause() error
	IsPlaying() bool

	SeekTo(positionMs int64) error
	SeekToItem(index int, positionMs int64) error
	Position() int64
	Duration() int64
	CurrentIndex() int
	ItemCount() int

	SetSpeed(rate float64) error

	Tracks() ([]TrackGroup, error)
	OverrideAudioTrack(group, track int) error
	ClearAudioOverrides() error

	SetListener(l Listener)

	// Release frees engine resources. Calling it more than once is a no-op.
	Release() error
}

// Snapshot is the (index, position, playing) triple captured before a
// reload or hand-off.
type Snapshot struct {
	Index      int
	PositionMs int64
	Playing    bool
}

// Capture reads a Snapshot from t.
func Capture(t Transport) Snapshot {
	pos := t.Position()
	if pos < 0 {
		pos = 0
	}
	return Snapshot{Index: t.CurrentIndex(), PositionMs: pos, Playing: t.IsPlaying()}
}
