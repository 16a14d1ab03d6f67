//go:build libvlc

// libVLC backend: in-process MediaList + ListPlayer through CGO. Needs the
// libvlc development headers at build time.
package vlc

import (
	"errors"
	"fmt"
	"sync"

	libvlc "github.com/adrg/libvlc-go/v3"
	"github.com/rs/zerolog"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
	"vidgallery/internal/player"
)

var (
	vlcInitOnce sync.Once
	vlcInitErr  error
)

type libVLC struct {
	log zerolog.Logger

	mu         sync.Mutex
	listPlayer *libvlc.ListPlayer
	player     *libvlc.Player
	mediaList  *libvlc.MediaList
	events     map[*libvlc.EventManager][]libvlc.EventID
	items      []media.Source
	index      int
	override   bool
	listener   player.Listener
	released   bool
}

func newLibVLC(cfg Config) (player.Transport, error) {
	vlcInitOnce.Do(func() {
		args := append(baseArgs(cfg.Fullscreen), cfg.ExtraArgs...)
		args = append(args, "--no-dbus")
		vlcInitErr = libvlc.Init(args...)
	})
	if vlcInitErr != nil {
		return nil, fmt.Errorf("libvlc init failed: %w", vlcInitErr)
	}

	listPlayer, err := libvlc.NewListPlayer()
	if err != nil {
		return nil, fmt.Errorf("list player creation failed: %w", err)
	}
	p, err := listPlayer.Player()
	if err != nil {
		_ = listPlayer.Release()
		return nil, fmt.Errorf("list player: %w", err)
	}
	if err := listPlayer.SetPlaybackMode(libvlc.Default); err != nil {
		_ = listPlayer.Release()
		return nil, fmt.Errorf("playback mode: %w", err)
	}

	b := &libVLC{
		log:        xlog.WithComponent("vlc"),
		listPlayer: listPlayer,
		player:     p,
		index:      -1,
		events:     map[*libvlc.EventManager][]libvlc.EventID{},
	}
	if err := b.attachEvents(); err != nil {
		_ = listPlayer.Release()
		return nil, err
	}
	b.log.Info().Msg("libVLC ListPlayer initialized")
	return b, nil
}

// attachEvents subscribes to player events. libVLC forbids calling back
// into the library from its event threads, so handlers that need state
// hop onto a goroutine.
func (b *libVLC) attachEvents() error {
	em, err := b.player.EventManager()
	if err != nil {
		return fmt.Errorf("player events: %w", err)
	}
	lem, err := b.listPlayer.EventManager()
	if err != nil {
		return fmt.Errorf("list player events: %w", err)
	}

	attach := func(m *libvlc.EventManager, ev libvlc.Event, fn func()) error {
		id, err := m.Attach(ev, func(libvlc.Event, interface{}) { fn() }, nil)
		if err != nil {
			return err
		}
		b.events[m] = append(b.events[m], id)
		return nil
	}

	return errors.Join(
		attach(em, libvlc.MediaPlayerPlaying, func() { b.emitPlaying(true) }),
		attach(em, libvlc.MediaPlayerPaused, func() { b.emitPlaying(false) }),
		attach(em, libvlc.MediaPlayerStopped, func() { b.emitPlaying(false) }),
		attach(em, libvlc.MediaPlayerLengthChanged, func() {
			if l := b.currentListener(); l.OnReady != nil {
				l.OnReady()
			}
		}),
		attach(em, libvlc.MediaPlayerEncounteredError, func() { go b.emitError() }),
		attach(lem, libvlc.MediaListPlayerNextItemSet, func() { go b.emitTransition() }),
	)
}

func (b *libVLC) currentListener() player.Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listener
}

func (b *libVLC) emitPlaying(playing bool) {
	if l := b.currentListener(); l.OnIsPlayingChanged != nil {
		l.OnIsPlayingChanged(playing)
	}
}

func (b *libVLC) emitTransition() {
	idx := b.CurrentIndex()
	if l := b.currentListener(); l.OnItemTransition != nil && idx >= 0 {
		l.OnItemTransition(idx)
	}
}

// emitError classifies a failure. libVLC gives no detail, so a missing
// file is a source error and everything else is unknown.
func (b *libVLC) emitError() {
	b.mu.Lock()
	var path string
	if b.index >= 0 && b.index < len(b.items) {
		path = b.items[b.index].Path
	}
	l := b.listener
	b.mu.Unlock()

	pe := &player.PlaybackError{Code: player.ErrCodeUnknown, Message: "VLC could not play " + media.Name(path)}
	if path != "" && !media.FileExists(path) {
		pe = &player.PlaybackError{Code: player.ErrCodeSource, Message: "file not found: " + media.Name(path)}
	}
	b.log.Error().Str("path", path).Str("code", pe.Code.String()).Msg("playback error")
	if l.OnError != nil {
		l.OnError(pe)
	}
}

func (b *libVLC) Load(items []media.Source, index int, positionMs int64) error {
	if len(items) == 0 {
		return player.ErrNoMedia
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return player.ErrReleased
	}

	list, err := libvlc.NewMediaList()
	if err != nil {
		return fmt.Errorf("media list creation failed: %w", err)
	}
	for _, it := range items {
		m, err := libvlc.NewMediaFromPath(it.Path)
		if err != nil {
			_ = list.Release()
			return fmt.Errorf("open %s: %w", media.Name(it.Path), err)
		}
		if opt := subtitleOption(it); opt != "" {
			if err := m.AddOptions(opt); err != nil {
				b.log.Warn().Err(err).Str("subtitle", it.Subtitle.Path).Msg("attach subtitle")
			}
		}
		if err := list.AddMedia(m); err != nil {
			_ = m.Release()
			_ = list.Release()
			return fmt.Errorf("add %s: %w", media.Name(it.Path), err)
		}
	}

	_ = b.listPlayer.Stop()
	if err := b.listPlayer.SetMediaList(list); err != nil {
		_ = list.Release()
		return fmt.Errorf("set media list failed: %w", err)
	}
	if b.mediaList != nil {
		_ = b.mediaList.Release()
	}
	b.mediaList = list
	b.items = append([]media.Source(nil), items...)
	b.index = player.ClampIndex(index, len(items))
	b.override = false

	// Starting an item is the only way to select it; pause right away so
	// Load leaves playback stopped.
	if err := b.listPlayer.PlayAtIndex(uint(b.index)); err != nil {
		return fmt.Errorf("select item %d: %w", b.index, err)
	}
	if err := b.listPlayer.SetPause(true); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	if positionMs > 0 {
		if err := b.player.SetMediaTime(int(positionMs)); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}
	return nil
}

func (b *libVLC) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return player.ErrNoMedia
	}
	return b.listPlayer.SetPause(false)
}

func (b *libVLC) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	return b.listPlayer.SetPause(true)
}

func (b *libVLC) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.released && b.listPlayer.IsPlaying()
}

func (b *libVLC) SeekTo(positionMs int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return player.ErrNoMedia
	}
	return b.player.SetMediaTime(int(max(positionMs, 0)))
}

func (b *libVLC) SeekToItem(index int, positionMs int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.items) {
		return fmt.Errorf("item %d out of range (have %d)", index, len(b.items))
	}
	wasPlaying := b.listPlayer.IsPlaying()
	if err := b.listPlayer.PlayAtIndex(uint(index)); err != nil {
		return err
	}
	b.index = index
	if !wasPlaying {
		if err := b.listPlayer.SetPause(true); err != nil {
			return err
		}
	}
	if positionMs > 0 {
		return b.player.SetMediaTime(int(positionMs))
	}
	return nil
}

func (b *libVLC) Position() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0
	}
	t, err := b.player.MediaTime()
	if err != nil {
		return 0
	}
	return int64(t)
}

func (b *libVLC) Duration() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0
	}
	d, err := b.player.MediaLength()
	if err != nil {
		return 0
	}
	return int64(d)
}

func (b *libVLC) CurrentIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released || b.mediaList == nil {
		return b.index
	}
	m, err := b.player.Media()
	if err != nil || m == nil {
		return b.index
	}
	if i, err := b.mediaList.IndexOfMedia(m); err == nil && i >= 0 {
		b.index = i
	}
	return b.index
}

func (b *libVLC) ItemCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *libVLC) SetSpeed(rate float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return player.ErrReleased
	}
	return b.player.SetPlaybackRate(float32(rate))
}

// Tracks reports the audio tracks as one group. libVLC lists a "Disable"
// pseudo track with ID -1, which is skipped.
func (b *libVLC) Tracks() ([]player.TrackGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released || len(b.items) == 0 {
		return nil, nil
	}
	descs, err := b.player.AudioTrackDescriptors()
	if err != nil {
		return nil, err
	}
	current, _ := b.player.AudioTrackID()
	g := player.TrackGroup{Type: player.TrackAudio}
	for _, d := range descs {
		if d.ID < 0 {
			continue
		}
		g.Tracks = append(g.Tracks, player.Track{ID: d.ID, Label: d.Description, Selected: d.ID == current})
	}
	if len(g.Tracks) == 0 {
		return nil, nil
	}
	return []player.TrackGroup{g}, nil
}

func (b *libVLC) OverrideAudioTrack(group, track int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	descs, err := b.player.AudioTrackDescriptors()
	if err != nil {
		return err
	}
	var ids []int
	for _, d := range descs {
		if d.ID >= 0 {
			ids = append(ids, d.ID)
		}
	}
	if group != 0 || track < 0 || track >= len(ids) {
		return fmt.Errorf("track %d/%d out of range", group, track)
	}
	if err := b.player.SetAudioTrack(ids[track]); err != nil {
		return err
	}
	b.override = true
	return nil
}

func (b *libVLC) ClearAudioOverrides() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.override {
		return nil
	}
	b.override = false
	descs, err := b.player.AudioTrackDescriptors()
	if err != nil {
		return err
	}
	for _, d := range descs {
		if d.ID >= 0 {
			return b.player.SetAudioTrack(d.ID)
		}
	}
	return nil
}

func (b *libVLC) SetListener(l player.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
}

func (b *libVLC) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true

	for em, ids := range b.events {
		em.Detach(ids...)
	}
	var errs []error
	if err := b.listPlayer.Stop(); err != nil {
		errs = append(errs, err)
	}
	if b.mediaList != nil {
		errs = append(errs, b.mediaList.Release())
		b.mediaList = nil
	}
	errs = append(errs, b.listPlayer.Release(), libvlc.Release())
	b.log.Debug().Msg("libVLC released")
	return errors.Join(errs...)
}
