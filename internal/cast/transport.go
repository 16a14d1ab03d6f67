package cast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go2tv.app/go2tv/v2/utils"
	"golang.org/x/time/rate"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"
	"vidgallery/internal/player"
)

const (
	defaultPollEvery = time.Second
	statusTTL        = 500 * time.Millisecond
	probeTimeout     = 10 * time.Second
	// lostAfter consecutive status failures end the session.
	lostAfter = 3
	// An item that goes idle within endSlack of its duration finished.
	endSlack = 2 * time.Second
)

// Receiver player states.
const (
	statePlaying   = "PLAYING"
	stateBuffering = "BUFFERING"
	statePaused    = "PAUSED"
	stateIdle      = "IDLE"
)

// directTypes play on the default media receiver without transcoding.
var directTypes = map[string]bool{
	"video/mp4":  true,
	"video/webm": true,
	"audio/mp4":  true,
	"audio/mpeg": true,
}

// Transport is a player.Transport that plays on a Chromecast. Like the
// local engine it stages Load and starts the receiver on Play, because
// the receiver autoplays whatever it is given.
//
// Subtitles are never sent to the receiver.
type Transport struct {
	opts    Options
	device  string
	log     zerolog.Logger
	connect *rate.Limiter

	mu         sync.Mutex
	client     Client
	server     MediaServer
	session    string
	items      []media.Source
	durations  map[int]int64
	index      int
	staged     bool
	stagedMs   int64
	resume     bool // play state a lost session left while staged
	offsetMs   int64
	state      string
	currentMs  int64
	statusAt   time.Time
	failures   int
	listener   player.Listener
	monitoring bool
	released   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a cast engine for opts.Device. Nothing is dialled until
// the first Load.
func New(opts Options) (*Transport, error) {
	device, err := NormalizeDevice(opts.Device)
	if err != nil {
		return nil, err
	}
	if opts.Dial == nil {
		opts.Dial = dialGo2TV
	}
	if opts.NewServer == nil {
		opts.NewServer = newGo2TVServer
	}
	if opts.ListenAddr == nil {
		opts.ListenAddr = utils.URLtoListenIPandPort
	}
	if opts.PollEvery <= 0 {
		opts.PollEvery = defaultPollEvery
	}
	switch opts.Transcode {
	case "":
		opts.Transcode = TranscodeAuto
	case TranscodeAuto, TranscodeAlways, TranscodeNever:
	default:
		return nil, fmt.Errorf("unknown transcode policy %q", opts.Transcode)
	}
	return &Transport{
		opts:      opts,
		device:    device,
		log:       xlog.WithComponent("cast").With().Str("device", device).Logger(),
		connect:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		durations: map[int]int64{},
		index:     -1,
		stop:      make(chan struct{}),
	}, nil
}

// Device returns the host:port being cast to.
func (t *Transport) Device() string { return t.device }

// ensureConnected dials the device once per session. Reconnects are rate
// limited so a missing device does not stall every command. Callers hold
// t.mu.
func (t *Transport) ensureConnected() error {
	if t.released {
		return player.ErrReleased
	}
	if t.client != nil {
		return nil
	}
	if !t.connect.Allow() {
		return fmt.Errorf("%w: reconnect throttled", ErrUnavailable)
	}
	c, err := t.opts.Dial(t.device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := c.Connect(); err != nil {
		_ = c.Close(false)
		return fmt.Errorf("%w: connect: %v", ErrUnavailable, err)
	}
	t.client = c
	t.session = uuid.NewString()
	t.failures = 0
	t.log.Info().Str("session", t.session).Msg("cast session connected")
	if !t.monitoring {
		t.monitoring = true
		t.wg.Add(1)
		go t.monitor()
	}
	return nil
}

func (t *Transport) Load(items []media.Source, index int, positionMs int64) error {
	if len(items) == 0 {
		return player.ErrNoMedia
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return player.ErrReleased
	}
	if err := t.ensureConnected(); err != nil {
		return err
	}
	t.items = player.WithoutSubtitles(items)
	t.durations = map[int]int64{}
	t.index = player.ClampIndex(index, len(items))
	t.stagedMs = max(positionMs, 0)
	t.staged = true
	t.resume = false
	t.state = ""
	return nil
}

// loadItem serves item i and hands its URL to the receiver. Transcoded
// streams cannot seek, so they restart at positionMs and the offset is
// added back when reporting the position. Callers hold t.mu.
func (t *Transport) loadItem(i int, positionMs int64) error {
	src := t.items[i]
	contentType := contentTypeOf(src.Path)
	transcode := t.shouldTranscode(contentType)
	durMs := t.durationOf(i)

	listenAddr, err := t.opts.ListenAddr("http://" + t.device)
	if err != nil {
		return fmt.Errorf("%w: listen address: %v", ErrUnavailable, err)
	}
	route := "/" + t.session + "/" + uuid.NewString()[:8] + "/" + url.PathEscape(path.Base(src.Path))

	srv := t.opts.NewServer(listenAddr)
	startSec := int(positionMs / 1000)
	offset := int64(0)
	if transcode {
		srv.AddHandler(route, nil, &utils.TranscodeOptions{FFmpegPath: t.ffmpeg(), SeekSeconds: startSec}, src.Path)
		contentType = "video/mp4"
		offset = int64(startSec) * 1000
		startSec = 0
	} else {
		srv.AddHandler(route, nil, nil, src.Path)
	}
	started := make(chan error, 1)
	go srv.StartServing(started)
	if err := <-started; err != nil {
		return fmt.Errorf("start media server: %w", err)
	}
	if t.server != nil {
		t.server.StopServer()
	}
	t.server = srv

	mediaURL := "http://" + listenAddr + route
	if err := t.client.Load(mediaURL, contentType, startSec, float64(durMs)/1000, "", false); err != nil {
		return fmt.Errorf("cast load %s: %w", media.Name(src.Path), err)
	}
	t.index = i
	t.offsetMs = offset
	t.currentMs = positionMs
	t.state = stateBuffering
	t.statusAt = time.Now()
	t.log.Info().Str("item", media.Name(src.Path)).Bool("transcode", transcode).Int64("position_ms", positionMs).Msg("cast load")
	return nil
}

func (t *Transport) shouldTranscode(contentType string) bool {
	switch t.opts.Transcode {
	case TranscodeAlways:
		return true
	case TranscodeNever:
		return false
	}
	return !directTypes[contentType] && t.ffmpeg() != ""
}

func (t *Transport) ffmpeg() string {
	if t.opts.FFmpeg != "" {
		return t.opts.FFmpeg
	}
	return "ffmpeg"
}

// contentTypeOf asks go2tv first, then the extension table.
func contentTypeOf(p string) string {
	if ct, err := utils.GetMimeDetailsFromPath(p); err == nil && ct != "" && ct != "/" && ct != "application/octet-stream" {
		return strings.TrimSpace(strings.Split(ct, ";")[0])
	}
	return media.ContentType(p)
}

// durationOf probes item i once. Callers hold t.mu.
func (t *Transport) durationOf(i int) int64 {
	if d, ok := t.durations[i]; ok {
		return d
	}
	var ms int64
	if t.opts.Prober != nil {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		d, err := t.opts.Prober.Duration(ctx, t.items[i].Path)
		cancel()
		if err != nil {
			t.log.Debug().Err(err).Str("item", media.Name(t.items[i].Path)).Msg("duration probe")
		} else {
			ms = d.Milliseconds()
		}
	}
	t.durations[i] = ms
	return ms
}

func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return player.ErrNoMedia
	}
	if err := t.ensureConnected(); err != nil {
		return err
	}
	if t.staged {
		if err := t.loadItem(t.index, t.stagedMs); err != nil {
			return err
		}
		t.staged, t.resume = false, false
		return nil
	}
	if err := t.client.Play(); err != nil {
		return fmt.Errorf("cast play: %w", err)
	}
	t.state = statePlaying
	return nil
}

func (t *Transport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.staged || t.client == nil {
		t.resume = false
		return nil
	}
	if err := t.client.Pause(); err != nil {
		return fmt.Errorf("cast pause: %w", err)
	}
	t.state = statePaused
	return nil
}

func (t *Transport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.staged {
		return t.resume
	}
	t.refresh()
	return t.state == statePlaying || t.state == stateBuffering
}

func (t *Transport) SeekTo(positionMs int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return player.ErrNoMedia
	}
	positionMs = max(positionMs, 0)
	if t.staged {
		t.stagedMs = positionMs
		return nil
	}
	if t.client == nil {
		return ErrUnavailable
	}
	if t.offsetMs > 0 || t.shouldTranscode(contentTypeOf(t.items[t.index].Path)) {
		return t.reload(t.index, positionMs)
	}
	if err := t.client.Seek(int(positionMs / 1000)); err != nil {
		return fmt.Errorf("cast seek: %w", err)
	}
	t.currentMs = positionMs
	return nil
}

func (t *Transport) SeekToItem(index int, positionMs int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.items) {
		return fmt.Errorf("item %d out of range (have %d)", index, len(t.items))
	}
	positionMs = max(positionMs, 0)
	if t.staged {
		t.index, t.stagedMs = index, positionMs
		return nil
	}
	if t.client == nil {
		return ErrUnavailable
	}
	return t.reload(index, positionMs)
}

// reload loads item i and restores the pause state. Callers hold t.mu.
func (t *Transport) reload(i int, positionMs int64) error {
	wasPlaying := t.state == statePlaying || t.state == stateBuffering
	if err := t.loadItem(i, positionMs); err != nil {
		return err
	}
	if !wasPlaying {
		if err := t.client.Pause(); err != nil {
			return fmt.Errorf("cast pause: %w", err)
		}
		t.state = statePaused
	}
	return nil
}

func (t *Transport) Position() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.staged {
		return t.stagedMs
	}
	t.refresh()
	return t.currentMs
}

func (t *Transport) Duration() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index < 0 || t.index >= len(t.items) {
		return 0
	}
	return t.durationOf(t.index)
}

func (t *Transport) CurrentIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

func (t *Transport) ItemCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// SetSpeed is accepted and ignored: the cast client has no rate control.
func (t *Transport) SetSpeed(rate float64) error {
	t.log.Debug().Float64("rate", rate).Msg("playback rate not supported on cast, ignored")
	return nil
}

// Tracks reports nothing; the receiver does not expose its tracks.
func (t *Transport) Tracks() ([]player.TrackGroup, error) { return nil, nil }

func (t *Transport) OverrideAudioTrack(group, track int) error { return ErrUnsupported }

func (t *Transport) ClearAudioOverrides() error { return nil }

func (t *Transport) SetListener(l player.Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
}

// Release stops the receiver, the media server and the monitor.
func (t *Transport) Release() error {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return nil
	}
	t.released = true
	client, server := t.client, t.server
	t.client, t.server = nil, nil
	t.mu.Unlock()

	close(t.stop)
	t.wg.Wait()

	var errs []error
	if client != nil {
		if err := client.Close(true); err != nil {
			errs = append(errs, fmt.Errorf("close cast client: %w", err))
		}
	}
	if server != nil {
		server.StopServer()
	}
	t.log.Debug().Msg("cast released")
	return errors.Join(errs...)
}

// refresh updates the cached receiver status when it is stale. Callers
// hold t.mu.
func (t *Transport) refresh() {
	if t.client == nil || time.Since(t.statusAt) < statusTTL {
		return
	}
	st, err := t.client.GetStatus()
	if err != nil || st == nil {
		return
	}
	t.applyStatus(st.PlayerState, st.CurrentTime)
}

// applyStatus records a receiver status. Callers hold t.mu.
func (t *Transport) applyStatus(state string, currentTime float32) {
	t.state = strings.ToUpper(state)
	t.currentMs = t.offsetMs + int64(currentTime*1000)
	t.statusAt = time.Now()
}
