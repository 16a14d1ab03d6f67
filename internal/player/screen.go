package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
	"vidgallery/internal/metrics"
)

// User-facing notices.
const (
	NoticeNoVideosProvided = "No videos provided"
	NoticeNoNext           = "No next video"
	NoticeNoPrevious       = "No previous video"
	NoticeSubtitlesOn      = "Subtitles enabled"
	NoticeSubtitlesOff     = "Subtitles disabled"
	NoticeFillScreen       = "Fill Screen"
	NoticeFitScreen        = "Fit Screen"
)

// DefaultPollInterval is how often position and duration are refreshed.
const DefaultPollInterval = 500 * time.Millisecond

// Options configures a Screen.
type Options struct {
	// Local is the on-device engine. Required.
	Local Transport
	// Remote is the cast engine; nil disables casting.
	Remote Transport
	// Volume is the system volume; nil disables volume gestures.
	Volume VolumeControl

	// StartPositionMs is where the first item starts, for resuming.
	StartPositionMs int64

	Geometry          Geometry
	PollInterval      time.Duration
	AutoLoadSubtitles bool
	// FileExists checks for sidecar subtitles. Defaults to media.FileExists.
	FileExists func(string) bool

	// OnNotice and OnView are called on the loop goroutine. They must not
	// call back into the Screen synchronously.
	OnNotice func(msg string)
	OnView   func(v View)
}

// Screen owns a playlist and both engines. Every command runs on a single
// loop goroutine started by Run, so engine calls are never concurrent.
type Screen struct {
	opts     Options
	switcher *Switcher
	ticker   *time.Ticker

	// Loop-owned.
	state       State
	positionMs  int64
	durationMs  int64
	playing     bool
	volume      int
	volumeMax   int
	notice      string
	dragPreview int64

	cmds chan func()
	quit chan struct{}
	done chan struct{}

	mu         sync.Mutex
	view       View
	resumePath string
	started    bool
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

// NewScreen creates a Screen for paths starting at startIndex. An
// out-of-range index starts at the first item; an empty list yields a
// Screen that only shows a notice.
func NewScreen(paths []string, startIndex int, opts Options) *Screen {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FileExists == nil {
		opts.FileExists = media.FileExists
	}
	paths = append([]string(nil), paths...)
	s := &Screen{
		opts:        opts,
		switcher:    NewSwitcher(opts.Local, opts.Remote),
		state:       initialState(paths, startIndex, opts.AutoLoadSubtitles),
		dragPreview: -1,
		cmds:        make(chan func(), 64),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	s.view = s.render()
	return s
}

// Run loads the playlist, starts playback and processes commands until
// ctx is done or Close is called.
func (s *Screen) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return ErrReleased
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.done)

	s.ticker = time.NewTicker(s.opts.PollInterval)
	defer s.ticker.Stop()

	s.open()

	for {
		var tick <-chan time.Time
		if !s.state.SeekDragging {
			tick = s.ticker.C
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.quit:
			return nil
		case fn := <-s.cmds:
			fn()
		case <-tick:
			s.poll()
		}
	}
}

// Close stops the loop and releases both engines, even if Run was never
// called or an engine never started. Subsequent calls return the first
// result.
func (s *Screen) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		close(s.quit)
		if started {
			<-s.done
		}

		var errs []error
		if s.opts.Local != nil {
			if err := s.opts.Local.Release(); err != nil {
				errs = append(errs, fmt.Errorf("release local: %w", err))
			}
		}
		if s.opts.Remote != nil {
			if err := s.opts.Remote.Release(); err != nil {
				errs = append(errs, fmt.Errorf("release cast: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
		logger := xlog.WithComponent("player")
		logger.Debug().Msg("screen closed")
	})
	return s.closeErr
}

// View returns the latest rendered view.
func (s *Screen) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Resume returns the current item and position for the resume file.
func (s *Screen) Resume() (Resume, bool) {
	v := s.View()
	s.mu.Lock()
	path := s.resumePath
	s.mu.Unlock()
	if path == "" {
		return Resume{}, false
	}
	return Resume{Path: path, PositionMs: v.PositionMs, SavedAt: time.Now()}, true
}

// exec runs fn on the loop and waits for its result.
func (s *Screen) exec(name string, fn func() error) error {
	metrics.RecordCommand(name)
	errc := make(chan error, 1)
	select {
	case s.cmds <- func() { errc <- fn() }:
	case <-s.quit:
		return ErrReleased
	}
	select {
	case err := <-errc:
		return err
	case <-s.done:
	case <-s.quit:
	}
	select {
	case err := <-errc:
		return err
	default:
		return ErrReleased
	}
}

// post queues fn without waiting. Safe to call from engine goroutines and
// from the loop itself.
func (s *Screen) post(fn func()) {
	select {
	case s.cmds <- fn:
		return
	default:
	}
	go func() {
		select {
		case s.cmds <- fn:
		case <-s.quit:
		case <-s.done:
		}
	}()
}

func (s *Screen) active() Transport { return s.switcher.Active() }

func (s *Screen) open() {
	logger := xlog.WithComponent("player")

	s.attach(s.opts.Local)
	if s.opts.Remote != nil {
		s.attach(s.opts.Remote)
	}
	s.readVolume()

	if s.state.Empty() {
		s.notify(NoticeNoVideosProvided)
		return
	}

	items := BuildSources(s.state.Paths, s.state.AutoLoadSubtitles, s.opts.FileExists)
	if err := s.opts.Local.Load(items, s.state.Index, s.opts.StartPositionMs); err != nil {
		logger.Error().Err(err).Msg("load playlist")
		s.notify(ErrorNotice(err))
		return
	}
	if err := s.opts.Local.Play(); err != nil {
		logger.Error().Err(err).Msg("start playback")
		s.notify(ErrorNotice(err))
	}
	s.playing = s.opts.Local.IsPlaying()
	logger.Info().Int("items", len(items)).Int("index", s.state.Index).Msg("playlist opened")
	s.publish()
}

// attach routes t's events onto the loop. Events from the engine that is
// not currently active are dropped.
func (s *Screen) attach(t Transport) {
	t.SetListener(Listener{
		OnError: func(e *PlaybackError) {
			s.post(func() {
				if s.active() == t {
					s.onPlaybackError(e)
				}
			})
		},
		OnItemTransition: func(index int) {
			s.post(func() {
				if s.active() == t {
					s.state = s.state.WithIndex(index)
					s.publish()
				}
			})
		},
		OnReady: func() {
			s.post(func() {
				if s.active() == t {
					s.poll()
				}
			})
		},
		OnIsPlayingChanged: func(playing bool) {
			s.post(func() {
				if s.active() == t {
					s.playing = playing
					s.publish()
				}
			})
		},
	})
}

func (s *Screen) onPlaybackError(e *PlaybackError) {
	metrics.RecordPlaybackError(e.Code.String())
	logger := xlog.WithComponent("player")
	logger.Error().Err(e).Str("path", s.state.Current()).Msg("playback error")
	s.notify(ErrorNotice(e))
}

func (s *Screen) readVolume() {
	if s.opts.Volume == nil {
		return
	}
	level, maxVolume, err := s.opts.Volume.Volume()
	if err != nil {
		logger := xlog.WithComponent("player")
		logger.Warn().Err(err).Msg("read volume")
		return
	}
	s.volume, s.volumeMax = level, maxVolume
}

func (s *Screen) poll() {
	if s.state.Empty() {
		return
	}
	t := s.active()
	s.positionMs = max(t.Position(), 0)
	s.durationMs = t.Duration()
	s.playing = t.IsPlaying()
	if idx := t.CurrentIndex(); idx != s.state.Index {
		s.state = s.state.WithIndex(idx)
	}
	s.publish()
}

func (s *Screen) notify(msg string) {
	s.notice = msg
	logger := xlog.WithComponent("player")
	logger.Info().Str("notice", msg).Msg("notice")
	if s.opts.OnNotice != nil {
		s.opts.OnNotice(msg)
	}
	s.publish()
}

func (s *Screen) render() View {
	st := s.state
	v := View{
		Title:            media.Name(st.Current()),
		Index:            st.Index,
		Count:            len(st.Paths),
		CurrentTime:      media.FormatMillis(s.positionMs),
		TotalTime:        "00:00",
		PositionMs:       s.positionMs,
		DurationMs:       max(s.durationMs, 0),
		Progress:         Progress(s.positionMs, s.durationMs),
		Playing:          s.playing,
		Speed:            SpeedLabel(st.Speed),
		Volume:           VolumeText(s.volume, s.volumeMax),
		VolumeLevel:      s.volume,
		VolumeMax:        s.volumeMax,
		ControlsVisible:  st.ControlsVisible,
		VolumeVisible:    st.VolumeVisible,
		SubtitlesVisible: st.SubtitlesVisible,
		AutoLoadSubs:     st.AutoLoadSubtitles,
		FillScreen:       st.FillScreen,
		Zoom:             st.Zoom,
		Mode:             st.Mode.String(),
		SurfaceVisible:   st.Mode == ModeLocal,
		Notice:           s.notice,
	}
	if st.Current() == "" {
		v.Title = ""
	}
	if s.durationMs > 0 {
		v.TotalTime = media.FormatMillis(s.durationMs)
	}
	if st.SeekDragging && s.dragPreview >= 0 {
		v.CurrentTime = media.FormatMillis(s.dragPreview)
	}
	return v
}

func (s *Screen) publish() {
	v := s.render()
	s.mu.Lock()
	s.view = v
	s.resumePath = s.state.Current()
	s.mu.Unlock()
	if s.opts.OnView != nil {
		s.opts.OnView(v)
	}
}
