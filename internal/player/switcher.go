package player

import (
	"fmt"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
	"vidgallery/internal/metrics"
)

// Mode is which engine is rendering.
type Mode int

const (
	ModeLocal Mode = iota
	ModeCasting
)

func (m Mode) String() string {
	if m == ModeCasting {
		return "casting"
	}
	return "local"
}

// Switcher moves the playlist between the local engine and a cast engine,
// carrying the current item, position and play state across.
type Switcher struct {
	local  Transport
	remote Transport
	mode   Mode
}

// NewSwitcher starts in ModeLocal. remote may be nil when casting is
// unavailable, which makes SessionAvailable a no-op.
func NewSwitcher(local, remote Transport) *Switcher {
	return &Switcher{local: local, remote: remote}
}

// Mode returns the current state.
func (s *Switcher) Mode() Mode { return s.mode }

// Active returns the engine commands should go to.
func (s *Switcher) Active() Transport {
	if s.mode == ModeCasting {
		return s.remote
	}
	return s.local
}

// CanCast reports whether a cast engine is configured.
func (s *Switcher) CanCast() bool { return s.remote != nil }

// SessionAvailable hands playback to the cast engine. items are sent
// without subtitles. It reports whether the mode changed. On failure the
// local engine is restored to what it was doing.
func (s *Switcher) SessionAvailable(items []media.Source) (bool, error) {
	if s.remote == nil || s.mode == ModeCasting || len(items) == 0 {
		return false, nil
	}
	logger := xlog.WithComponent("player")

	snap := Capture(s.local)
	if err := s.local.Pause(); err != nil {
		logger.Warn().Err(err).Msg("pause local before cast")
	}
	if err := s.load(s.remote, WithoutSubtitles(items), snap); err != nil {
		if snap.Playing {
			if perr := s.local.Play(); perr != nil {
				logger.Warn().Err(perr).Msg("resume local after failed cast")
			}
		}
		return false, fmt.Errorf("start cast: %w", err)
	}
	s.mode = ModeCasting
	metrics.RecordCastTransition(true)
	logger.Info().Int("index", snap.Index).Int64("position_ms", snap.PositionMs).Msg("switched to cast")
	return true, nil
}

// SessionEnded hands playback back to the local engine. Calling it while
// already local is a no-op.
func (s *Switcher) SessionEnded() (bool, error) {
	if s.mode != ModeCasting {
		return false, nil
	}
	logger := xlog.WithComponent("player")

	snap := Capture(s.remote)
	if err := s.remote.Pause(); err != nil {
		logger.Debug().Err(err).Msg("pause cast after session end")
	}
	s.mode = ModeLocal
	metrics.RecordCastTransition(false)

	index := ClampIndex(snap.Index, s.local.ItemCount())
	if index < 0 {
		return true, nil
	}
	if err := s.local.SeekToItem(index, snap.PositionMs); err != nil {
		return true, fmt.Errorf("restore local: %w", err)
	}
	if snap.Playing {
		if err := s.local.Play(); err != nil {
			return true, fmt.Errorf("resume local: %w", err)
		}
	}
	logger.Info().Int("index", index).Int64("position_ms", snap.PositionMs).Msg("switched to local")
	return true, nil
}

func (s *Switcher) load(t Transport, items []media.Source, snap Snapshot) error {
	index := ClampIndex(snap.Index, len(items))
	if err := t.Load(items, index, snap.PositionMs); err != nil {
		return err
	}
	if snap.Playing {
		return t.Play()
	}
	return nil
}
