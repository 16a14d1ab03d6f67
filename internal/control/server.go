// Package control serves the HTTP remote for a running player: library
// search, transport commands, the current view, health and metrics.
package control

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	xlog "vidgallery/internal/log"
	"vidgallery/internal/player"
	"vidgallery/internal/system"
)

const shutdownTimeout = 5 * time.Second

// Player is the part of player.Screen the remote drives.
type Player interface {
	View() player.View
	TogglePlayPause() error
	SkipForward() error
	SkipBack() error
	Next() error
	Previous() error
	CycleSpeed() error
	ToggleSubtitles() error
	ToggleAutoLoadSubtitles() error
	ToggleAspect() error
	SetVolume(level int) error
	EndSeekDrag(progress int) error
	AudioTracks() (player.TrackMenu, error)
	SelectAudioTrack(i int) error
	CastAvailable() error
	CastEnded() error
}

// Options wires the server to the rest of the process.
type Options struct {
	// Videos returns every indexed video path.
	Videos func(ctx context.Context) ([]string, error)
	// Player is nil when nothing is playing; player routes then answer 409.
	Player Player
	Health func() system.HealthStatus

	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit      int
	AllowedOrigins []string
}

// Server is the control API.
type Server struct {
	opts Options
	log  zerolog.Logger
	mux  *chi.Mux
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{opts: opts, log: xlog.WithComponent("control")}
	s.mux = s.routes()
	return s
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(s.mux)
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(rateLimit(s.opts.RateLimit, time.Minute))
		}
		r.Get("/videos", s.handleVideos)
		r.Route("/player", func(r chi.Router) {
			r.Use(s.requirePlayer)
			r.Get("/state", s.handleState)
			r.Post("/commands/{name}", s.handleCommand)
			r.Post("/seek", s.handleSeek)
			r.Post("/volume", s.handleVolume)
			r.Get("/audio-tracks", s.handleAudioTracks)
			r.Post("/audio-tracks/{index}", s.handleSelectAudio)
			r.Post("/cast", s.handleCast)
			r.Delete("/cast", s.handleCastEnd)
		})
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("control API listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
