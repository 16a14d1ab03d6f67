package vlc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
	"vidgallery/internal/player"
)

const (
	defaultPollEvery = 250 * time.Millisecond
	statusTTL        = 100 * time.Millisecond
	callTimeout      = 3 * time.Second
	startupTimeout   = 10 * time.Second
)

// Subprocess is a player.Transport backed by a VLC process. VLC owns the
// playlist and advances it; the monitor goroutine turns status changes
// and stderr errors into Listener events.
//
// Load only stages the playlist. VLC cannot select an item without
// playing it, so the staged (index, position) is applied by the first
// Play and reported until then.
type Subprocess struct {
	cfg       Config
	log       zerolog.Logger
	pollEvery time.Duration

	mu       sync.Mutex
	client   *Client
	cmd      *exec.Cmd
	items    []media.Source
	ids      []int
	staged   bool
	index    int
	stagedMs int64
	speed    float64
	override int
	status   Status
	statusAt time.Time
	reported int
	listener player.Listener
	released bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSubprocess prepares a VLC subprocess engine. The process is started
// by the first Load.
func NewSubprocess(cfg Config) (*Subprocess, error) {
	if cfg.Path == "" {
		path, err := FindVLC()
		if err != nil {
			return nil, err
		}
		cfg.Path = path
	}
	if cfg.HTTPPort <= 0 {
		return nil, fmt.Errorf("vlc http port %d out of range", cfg.HTTPPort)
	}
	if cfg.Password == "" {
		cfg.Password = uuid.NewString()
	}
	return newSubprocess(cfg), nil
}

func newSubprocess(cfg Config) *Subprocess {
	return &Subprocess{
		cfg:       cfg,
		log:       xlog.WithComponent("vlc"),
		pollEvery: defaultPollEvery,
		index:     -1,
		speed:     1.0,
		override:  -1,
		reported:  -1,
		stop:      make(chan struct{}),
	}
}

// attach wires s to an already running HTTP interface.
func attach(client *Client, pollEvery time.Duration) *Subprocess {
	s := newSubprocess(Config{Backend: BackendSubprocess})
	s.pollEvery = pollEvery
	s.client = client
	s.wg.Add(1)
	go s.monitor()
	return s
}

func (s *Subprocess) ensureStarted() error {
	if s.client != nil {
		return nil
	}
	args := subprocessArgs(s.cfg)
	cmd := exec.Command(s.cfg.Path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("vlc stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("vlc start failed: %w", err)
	}
	s.log.Info().Str("path", s.cfg.Path).Int("pid", cmd.Process.Pid).Int("http_port", s.cfg.HTTPPort).Msg("vlc started")

	s.cmd = cmd
	s.wg.Add(1)
	go s.watchProcess(cmd, stderr)

	client := NewClient("http://127.0.0.1:"+strconv.Itoa(s.cfg.HTTPPort), s.cfg.Password)
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := client.WaitReady(ctx, 100*time.Millisecond); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("vlc http interface: %w", err)
	}
	s.client = client
	s.wg.Add(1)
	go s.monitor()
	return nil
}

// watchProcess classifies stderr lines until the process exits.
func (s *Subprocess) watchProcess(cmd *exec.Cmd, stderr io.Reader) {
	defer s.wg.Done()
	sc := bufio.NewScanner(stderr)
	for sc.Scan() {
		line := sc.Text()
		if pe := Classify(line); pe != nil {
			s.reportError(pe)
			continue
		}
		s.log.Debug().Str("line", line).Msg("vlc")
	}
	err := cmd.Wait()

	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if !released {
		s.log.Error().Err(err).Msg("vlc exited unexpectedly")
		s.emitError(&player.PlaybackError{Code: player.ErrCodeUnknown, Message: "VLC exited", Err: err})
	}
}

// reportError forwards the first error of the current item only; VLC
// usually prints several lines for one failure.
func (s *Subprocess) reportError(pe *player.PlaybackError) {
	s.mu.Lock()
	plid := s.status.CurrentPLID
	if s.reported == plid && plid != -1 {
		s.mu.Unlock()
		return
	}
	s.reported = plid
	s.mu.Unlock()
	s.emitError(pe)
}

func (s *Subprocess) emitError(pe *player.PlaybackError) {
	s.mu.Lock()
	fn := s.listener.OnError
	s.mu.Unlock()
	if fn != nil {
		fn(pe)
	}
}

func (s *Subprocess) monitor() {
	defer s.wg.Done()
	t := time.NewTicker(s.pollEvery)
	defer t.Stop()

	prevPLID, prevPlaying, readyPLID := -1, false, -1
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		st, err := s.client.Status(ctx)
		cancel()
		if err != nil {
			continue
		}

		s.mu.Lock()
		if s.released {
			s.mu.Unlock()
			return
		}
		s.status, s.statusAt = st, time.Now()
		staged := s.staged
		index := s.indexOf(st.CurrentPLID)
		if index >= 0 && !staged {
			s.index = index
		}
		l := s.listener
		s.mu.Unlock()

		if staged {
			continue
		}
		if st.CurrentPLID != prevPLID {
			prevPLID = st.CurrentPLID
			if index >= 0 && l.OnItemTransition != nil {
				l.OnItemTransition(index)
			}
		}
		if st.LengthMs() > 0 && readyPLID != st.CurrentPLID {
			readyPLID = st.CurrentPLID
			if l.OnReady != nil {
				l.OnReady()
			}
		}
		if st.Playing() != prevPlaying {
			prevPlaying = st.Playing()
			if l.OnIsPlayingChanged != nil {
				l.OnIsPlayingChanged(prevPlaying)
			}
		}
	}
}

func (s *Subprocess) indexOf(plid int) int {
	for i, id := range s.ids {
		if id == plid {
			return i
		}
	}
	return -1
}

// command runs cmd and caches the status VLC returns. Callers hold s.mu.
func (s *Subprocess) command(cmd string, params url.Values) (Status, error) {
	if s.released {
		return Status{}, player.ErrReleased
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	st, err := s.client.Command(ctx, cmd, params)
	if err != nil {
		return st, err
	}
	s.status, s.statusAt = st, time.Now()
	return st, nil
}

// current returns a status no older than statusTTL. Callers hold s.mu.
func (s *Subprocess) current() Status {
	if s.client == nil || s.released || time.Since(s.statusAt) < statusTTL {
		return s.status
	}
	if st, err := s.command("", nil); err == nil {
		return st
	}
	return s.status
}

func (s *Subprocess) Load(items []media.Source, index int, positionMs int64) error {
	if len(items) == 0 {
		return player.ErrNoMedia
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return player.ErrReleased
	}
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if _, err := s.command("pl_stop", nil); err != nil {
		return err
	}
	if _, err := s.command("pl_empty", nil); err != nil {
		return err
	}
	for _, it := range items {
		q := url.Values{"input": {it.Path}}
		if opt := subtitleOption(it); opt != "" {
			q.Set("option", opt)
		}
		if _, err := s.command("in_enqueue", q); err != nil {
			return fmt.Errorf("enqueue %s: %w", media.Name(it.Path), err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	listed, err := s.client.Playlist(ctx)
	if err != nil {
		return err
	}
	if len(listed) < len(items) {
		return fmt.Errorf("vlc playlist has %d items, enqueued %d", len(listed), len(items))
	}
	listed = listed[len(listed)-len(items):]
	s.ids = make([]int, len(listed))
	for i, it := range listed {
		s.ids[i] = it.ID
	}

	s.items = append([]media.Source(nil), items...)
	s.index = player.ClampIndex(index, len(items))
	s.stagedMs = max(positionMs, 0)
	s.staged = true
	s.override = -1
	s.reported = -1
	s.log.Debug().Int("items", len(items)).Int("index", s.index).Int64("position_ms", s.stagedMs).Msg("playlist loaded")
	return nil
}

func (s *Subprocess) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return player.ErrNoMedia
	}
	if !s.staged {
		_, err := s.command("pl_forceresume", nil)
		return err
	}
	if err := s.startItem(s.index, s.stagedMs); err != nil {
		return err
	}
	s.staged = false
	return nil
}

// startItem plays item i from positionMs. Callers hold s.mu.
func (s *Subprocess) startItem(i int, positionMs int64) error {
	s.reported = -1
	if _, err := s.command("pl_play", url.Values{"id": {strconv.Itoa(s.ids[i])}}); err != nil {
		return err
	}
	if positionMs > 0 {
		if _, err := s.command("seek", url.Values{"val": {seekValue(positionMs)}}); err != nil {
			return err
		}
	}
	if s.speed != 1.0 {
		if _, err := s.command("rate", url.Values{"val": {formatRate(s.speed)}}); err != nil {
			return err
		}
	}
	s.index = i
	return nil
}

func (s *Subprocess) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged || s.client == nil {
		return nil
	}
	_, err := s.command("pl_forcepause", nil)
	return err
}

func (s *Subprocess) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged {
		return false
	}
	return s.current().Playing()
}

func (s *Subprocess) SeekTo(positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return player.ErrNoMedia
	}
	positionMs = max(positionMs, 0)
	if s.staged {
		s.stagedMs = positionMs
		return nil
	}
	_, err := s.command("seek", url.Values{"val": {seekValue(positionMs)}})
	return err
}

func (s *Subprocess) SeekToItem(index int, positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("item %d out of range (have %d)", index, len(s.items))
	}
	positionMs = max(positionMs, 0)
	if s.staged {
		s.index, s.stagedMs = index, positionMs
		return nil
	}
	wasPlaying := s.current().Playing()
	if err := s.startItem(index, positionMs); err != nil {
		return err
	}
	if !wasPlaying {
		_, err := s.command("pl_forcepause", nil)
		return err
	}
	return nil
}

func (s *Subprocess) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged {
		return s.stagedMs
	}
	return s.current().PositionMs()
}

func (s *Subprocess) Duration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged {
		return 0
	}
	return s.current().LengthMs()
}

func (s *Subprocess) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged {
		return s.index
	}
	if i := s.indexOf(s.current().CurrentPLID); i >= 0 {
		s.index = i
	}
	return s.index
}

func (s *Subprocess) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Subprocess) SetSpeed(rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = rate
	if s.staged || s.client == nil {
		return nil
	}
	_, err := s.command("rate", url.Values{"val": {formatRate(rate)}})
	return err
}

// Tracks lists one group per elementary stream, the way VLC reports them.
func (s *Subprocess) Tracks() ([]player.TrackGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.staged {
		return nil, nil
	}
	return streamGroups(s.current().Streams(), s.override), nil
}

func (s *Subprocess) OverrideAudioTrack(group, track int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return player.ErrNoMedia
	}
	groups := streamGroups(s.current().Streams(), s.override)
	if group < 0 || group >= len(groups) || track < 0 || track >= len(groups[group].Tracks) {
		return fmt.Errorf("track %d/%d out of range", group, track)
	}
	if groups[group].Type != player.TrackAudio {
		return errors.New("not an audio track")
	}
	id := groups[group].Tracks[track].ID
	if _, err := s.command("audio_track", url.Values{"val": {strconv.Itoa(id)}}); err != nil {
		return err
	}
	s.override = id
	return nil
}

func (s *Subprocess) ClearAudioOverrides() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override < 0 || s.client == nil {
		return nil
	}
	s.override = -1
	for _, st := range s.current().Streams() {
		if isAudio(st) {
			_, err := s.command("audio_track", url.Values{"val": {strconv.Itoa(st.ID)}})
			return err
		}
	}
	return nil
}

func (s *Subprocess) SetListener(l player.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Release stops the monitor and kills VLC. It is safe to call repeatedly.
func (s *Subprocess) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	cmd := s.cmd
	s.mu.Unlock()

	close(s.stop)
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	s.wg.Wait()
	s.log.Debug().Msg("vlc released")
	return nil
}

// streamGroups converts VLC streams into track groups. The default audio
// selection is the first audio stream.
func streamGroups(streams []Stream, override int) []player.TrackGroup {
	groups := make([]player.TrackGroup, 0, len(streams))
	firstAudio := true
	for _, st := range streams {
		g := player.TrackGroup{Type: streamType(st)}
		tr := player.Track{ID: st.ID, Language: strings.TrimSpace(st.Language), MIMEType: codecMIME(st)}
		if g.Type == player.TrackAudio {
			tr.Selected = override == st.ID || (override < 0 && firstAudio)
			firstAudio = false
		}
		g.Tracks = []player.Track{tr}
		groups = append(groups, g)
	}
	return groups
}

func isAudio(st Stream) bool { return streamType(st) == player.TrackAudio }

func streamType(st Stream) player.TrackType {
	switch strings.ToLower(st.Type) {
	case "audio":
		return player.TrackAudio
	case "video":
		return player.TrackVideo
	case "subtitle", "text":
		return player.TrackText
	default:
		return player.TrackUnknown
	}
}

// codecMIME turns VLC's "MPEG AAC Audio (mp4a)" into "audio/mp4a".
func codecMIME(st Stream) string {
	codec := st.Codec
	if open := strings.LastIndexByte(codec, '('); open >= 0 {
		if end := strings.IndexByte(codec[open:], ')'); end > 0 {
			codec = codec[open+1 : open+end]
		}
	}
	codec = strings.TrimSpace(codec)
	if codec == "" {
		return ""
	}
	return strings.ToLower(st.Type) + "/" + strings.ToLower(codec)
}

func seekValue(positionMs int64) string {
	return strconv.FormatInt((positionMs+500)/1000, 10)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
