// Package cast implements the remote playback engine: a Chromecast
// controlled through go2tv's cast protocol client, fed by go2tv's media
// HTTP server running on this host.
package cast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go2tv.app/go2tv/v2/castprotocol"
	"go2tv.app/go2tv/v2/httphandlers"
	"go2tv.app/go2tv/v2/soapcalls"
	"go2tv.app/go2tv/v2/utils"
)

var (
	// ErrUnavailable is returned when the device cannot be reached.
	ErrUnavailable = errors.New("cast device unavailable")
	// ErrUnsupported is returned for controls the receiver does not offer.
	ErrUnsupported = errors.New("not supported while casting")
)

// DefaultPort is the Chromecast control port.
const DefaultPort = "8009"

// Transcode policies.
const (
	TranscodeAuto   = "auto"
	TranscodeAlways = "always"
	TranscodeNever  = "never"
)

// Client is the part of the go2tv cast client the engine drives.
type Client interface {
	Connect() error
	Load(mediaURL, contentType string, startTime int, duration float64, subtitleURL string, live bool) error
	Play() error
	Pause() error
	Seek(seconds int) error
	Stop() error
	GetStatus() (*castprotocol.CastStatus, error)
	Close(stopMedia bool) error
}

// MediaServer serves local files to the receiver.
type MediaServer interface {
	AddHandler(path string, payload *soapcalls.TVPayload, transcode *utils.TranscodeOptions, media any)
	StartServing(serverStarted chan<- error)
	StopServer()
}

// Prober reports media durations; the receiver needs one for transcoded
// streams and the seek bar needs one always.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Options configures a Transport. Zero values select the go2tv
// implementations.
type Options struct {
	Device    string
	Transcode string
	FFmpeg    string
	Prober    Prober

	// OnSessionEnded is called once when the device stops answering.
	OnSessionEnded func()

	Dial       func(addr string) (Client, error)
	NewServer  func(listenAddr string) MediaServer
	ListenAddr func(deviceURL string) (string, error)
	PollEvery  time.Duration
}

func dialGo2TV(addr string) (Client, error) {
	c, err := castprotocol.NewCastClient(addr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newGo2TVServer(listenAddr string) MediaServer {
	return httphandlers.NewServer(listenAddr)
}

// NormalizeDevice adds the default port to a bare host.
func NormalizeDevice(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("%w: no device configured", ErrUnavailable)
	}
	if _, _, err := net.SplitHostPort(device); err == nil {
		return device, nil
	}
	return net.JoinHostPort(strings.Trim(device, "[]"), DefaultPort), nil
}

// Available reports whether the device accepts TCP connections on its
// control port.
func Available(ctx context.Context, device string) error {
	addr, err := NormalizeDevice(device)
	if err != nil {
		return err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_ = conn.Close()
	return nil
}
