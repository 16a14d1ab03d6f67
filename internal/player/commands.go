package player

import (
	"fmt"

	xlog "vidgallery/internal/log"
)

// Commands post onto the loop and wait for it. With an empty playlist they
// succeed without touching the engines.

// TogglePlayPause pauses when playing and plays otherwise.
func (s *Screen) TogglePlayPause() error {
	return s.exec("play_pause", s.togglePlayPause)
}

func (s *Screen) togglePlayPause() error {
	if s.state.Empty() {
		return nil
	}
	t := s.active()
	var err error
	if t.IsPlaying() {
		err = t.Pause()
	} else {
		err = t.Play()
	}
	if err != nil {
		return err
	}
	s.playing = t.IsPlaying()
	s.publish()
	return nil
}

// SkipForward jumps ahead by SkipIntervalMs, stopping at the end.
func (s *Screen) SkipForward() error {
	return s.exec("skip_forward", func() error {
		if s.state.Empty() {
			return nil
		}
		t := s.active()
		return s.seek(t, SkipForwardTarget(t.Position(), t.Duration()))
	})
}

// SkipBack jumps back by SkipIntervalMs, stopping at the start.
func (s *Screen) SkipBack() error {
	return s.exec("skip_back", func() error {
		if s.state.Empty() {
			return nil
		}
		t := s.active()
		return s.seek(t, SkipBackTarget(t.Position()))
	})
}

func (s *Screen) seek(t Transport, target int64) error {
	if err := t.SeekTo(target); err != nil {
		return err
	}
	s.positionMs = max(t.Position(), 0)
	s.publish()
	return nil
}

// Next moves to the following item, or notices that there is none.
func (s *Screen) Next() error {
	return s.exec("next", func() error { return s.step(+1) })
}

// Previous moves to the preceding item, or notices that there is none.
func (s *Screen) Previous() error {
	return s.exec("previous", func() error { return s.step(-1) })
}

func (s *Screen) step(dir int) error {
	if s.state.Empty() {
		return nil
	}
	t := s.active()
	target := t.CurrentIndex() + dir
	if target < 0 || target >= t.ItemCount() {
		if dir > 0 {
			s.notify(NoticeNoNext)
		} else {
			s.notify(NoticeNoPrevious)
		}
		return nil
	}
	if err := t.SeekToItem(target, 0); err != nil {
		return err
	}
	s.state = s.state.WithIndex(target)
	s.positionMs = 0
	s.publish()
	return nil
}

// CycleSpeed steps through 1.0, 1.5, 2.0, 0.5, 0.75 and back to 1.0.
func (s *Screen) CycleSpeed() error {
	return s.exec("speed", func() error {
		next := NextSpeed(s.state.Speed)
		if !s.state.Empty() {
			if err := s.active().SetSpeed(next); err != nil {
				return fmt.Errorf("set speed %.2f: %w", next, err)
			}
		}
		st := s.state
		st.Speed = next
		s.state = st
		s.publish()
		return nil
	})
}

// ToggleSubtitles shows or hides the subtitle overlay. Loaded tracks are
// untouched.
func (s *Screen) ToggleSubtitles() error {
	return s.exec("subtitles_visible", func() error {
		st := s.state
		st.SubtitlesVisible = !st.SubtitlesVisible
		s.state = st
		s.publish()
		return nil
	})
}

// ToggleAutoLoadSubtitles flips sidecar loading and rebuilds the local
// playlist in place.
func (s *Screen) ToggleAutoLoadSubtitles() error {
	return s.exec("subtitles_autoload", func() error {
		st := s.state
		st.AutoLoadSubtitles = !st.AutoLoadSubtitles
		if !st.Empty() {
			items := BuildSources(st.Paths, st.AutoLoadSubtitles, s.opts.FileExists)
			if _, err := Rebuild(s.opts.Local, items); err != nil {
				return err
			}
		}
		s.state = st
		if st.AutoLoadSubtitles {
			s.notify(NoticeSubtitlesOn)
		} else {
			s.notify(NoticeSubtitlesOff)
		}
		return nil
	})
}

// ToggleVolumeSlider shows or hides the volume slider.
func (s *Screen) ToggleVolumeSlider() error {
	return s.exec("volume_slider", func() error {
		st := s.state
		st.VolumeVisible = !st.VolumeVisible
		s.state = st
		s.readVolume()
		s.publish()
		return nil
	})
}

// SetVolume sets the system volume from the slider, clamped to its range.
func (s *Screen) SetVolume(level int) error {
	return s.exec("volume_set", func() error {
		if s.opts.Volume == nil {
			return nil
		}
		s.readVolume()
		if s.volumeMax <= 0 {
			return nil
		}
		return s.applyVolume(clampInt(level, 0, s.volumeMax))
	})
}

func (s *Screen) applyVolume(level int) error {
	if err := s.opts.Volume.SetVolume(level); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	s.volume = level
	s.publish()
	return nil
}

// ToggleAspect switches between fitting and filling the display.
func (s *Screen) ToggleAspect() error {
	return s.exec("aspect", func() error {
		st := s.state
		st.FillScreen = !st.FillScreen
		s.state = st
		if st.FillScreen {
			s.notify(NoticeFillScreen)
		} else {
			s.notify(NoticeFitScreen)
		}
		return nil
	})
}

// Tap toggles the control overlay.
func (s *Screen) Tap() error {
	return s.exec("tap", func() error {
		s.state = s.state.ToggleControls()
		s.publish()
		return nil
	})
}

// DoubleTap toggles play/pause.
func (s *Screen) DoubleTap() error {
	return s.exec("double_tap", s.togglePlayPause)
}

// Drag applies a drag gesture: horizontal seeks, vertical on the right
// half changes volume.
func (s *Screen) Drag(d Drag) error {
	return s.exec("drag", func() error {
		switch ClassifyDrag(d, s.opts.Geometry) {
		case DragSeek:
			if s.state.Empty() {
				return nil
			}
			t := s.active()
			target, ok := SeekTarget(d, s.opts.Geometry, t.Position(), t.Duration())
			if !ok {
				return nil
			}
			return s.seek(t, target)
		case DragVolume:
			if s.opts.Volume == nil {
				return nil
			}
			s.readVolume()
			target, ok := VolumeTarget(d, s.opts.Geometry, s.volume, s.volumeMax)
			if !ok {
				return nil
			}
			return s.applyVolume(target)
		}
		return nil
	})
}

// Pinch folds a scale step into the surface zoom.
func (s *Screen) Pinch(scale float64) error {
	return s.exec("pinch", func() error {
		st := s.state
		st.Zoom = NextZoom(st.Zoom, scale)
		s.state = st
		s.publish()
		return nil
	})
}

// BeginSeekDrag pauses the position poll while the seek bar is held.
func (s *Screen) BeginSeekDrag() error {
	return s.exec("seek_drag_begin", func() error {
		st := s.state
		st.SeekDragging = true
		s.state = st
		s.dragPreview = -1
		return nil
	})
}

// SeekDragTo previews the time under the seek bar thumb.
func (s *Screen) SeekDragTo(progress int) error {
	return s.exec("seek_drag_move", func() error {
		if !s.state.SeekDragging || s.durationMs <= 0 {
			return nil
		}
		s.dragPreview = ProgressToPosition(progress, s.durationMs)
		s.publish()
		return nil
	})
}

// EndSeekDrag seeks to progress (0..ProgressMax) and restarts the poll.
func (s *Screen) EndSeekDrag(progress int) error {
	return s.exec("seek_drag_end", func() error {
		st := s.state
		st.SeekDragging = false
		s.state = st
		s.dragPreview = -1
		if s.ticker != nil {
			s.ticker.Reset(s.opts.PollInterval)
		}
		if st.Empty() {
			s.publish()
			return nil
		}
		t := s.active()
		dur := t.Duration()
		if dur <= 0 {
			s.publish()
			return nil
		}
		return s.seek(t, ProgressToPosition(progress, dur))
	})
}

// AudioTracks returns the audio track menu. With fewer than two tracks it
// publishes a notice and returns an empty menu.
func (s *Screen) AudioTracks() (TrackMenu, error) {
	var menu TrackMenu
	err := s.exec("audio_tracks", func() error {
		if s.state.Empty() {
			s.notify(NoticeNoAudioTracks)
			return nil
		}
		groups, err := s.active().Tracks()
		if err != nil {
			return fmt.Errorf("list tracks: %w", err)
		}
		choices, selected := AudioChoices(groups)
		switch len(choices) {
		case 0:
			s.notify(NoticeNoAudioTracks)
			return nil
		case 1:
			s.notify(NoticeOneAudioTrack)
			return nil
		}
		menu.Selected = selected
		for _, c := range choices {
			menu.Labels = append(menu.Labels, c.Label)
		}
		return nil
	})
	return menu, err
}

// SelectAudioTrack applies menu entry i. Engine failures are reported as
// a notice and leave the current selection in place.
func (s *Screen) SelectAudioTrack(i int) error {
	return s.exec("audio_select", func() error {
		if s.state.Empty() {
			return nil
		}
		t := s.active()
		groups, err := t.Tracks()
		if err != nil {
			s.notify(noticeAudioSetFailed + err.Error())
			return nil
		}
		choices, _ := AudioChoices(groups)
		if i < 0 || i >= len(choices) {
			return fmt.Errorf("audio track %d out of range (have %d)", i, len(choices))
		}
		c := choices[i]
		if err := t.ClearAudioOverrides(); err != nil {
			s.notify(noticeAudioSetFailed + err.Error())
			return nil
		}
		if err := t.OverrideAudioTrack(c.Group, c.Track); err != nil {
			logger := xlog.WithComponent("player")
			logger.Warn().Err(err).Int("group", c.Group).Int("track", c.Track).Msg("audio override")
			s.notify(noticeAudioSetFailed + err.Error())
			return nil
		}
		s.notify(noticeAudioPrefix + c.Label)
		return nil
	})
}

// CastAvailable moves playback to the cast engine.
func (s *Screen) CastAvailable() error {
	return s.exec("cast_start", func() error {
		if s.state.Empty() || !s.switcher.CanCast() {
			return nil
		}
		items := BuildSources(s.state.Paths, false, s.opts.FileExists)
		changed, err := s.switcher.SessionAvailable(items)
		if err != nil {
			logger := xlog.WithComponent("player")
			logger.Warn().Err(err).Msg("cast hand-off failed, staying local")
			return err
		}
		if changed {
			s.syncMode()
		}
		return nil
	})
}

// CastEnded moves playback back to the local engine. It is a no-op when
// already local.
func (s *Screen) CastEnded() error {
	return s.exec("cast_end", func() error {
		changed, err := s.switcher.SessionEnded()
		if changed {
			s.syncMode()
		}
		return err
	})
}

func (s *Screen) syncMode() {
	st := s.state
	st.Mode = s.switcher.Mode()
	s.state = st
	s.poll()
	s.publish()
}
