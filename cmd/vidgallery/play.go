package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vidgallery/internal/cast"
	"vidgallery/internal/config"
	"vidgallery/internal/control"
	"vidgallery/internal/gallery"
	"vidgallery/internal/library"
	xlog "vidgallery/internal/log"
	"vidgallery/internal/player"
	"vidgallery/internal/probe"
	"vidgallery/internal/system"
	"vidgallery/internal/vlc"
)

func resumePath(cfg config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Library.IndexPath), "resume.json")
}

func playCmd(g *globalFlags) *cobra.Command {
	var (
		index     int
		castFlag  bool
		resume    bool
		noInput   bool
		listenArg string
	)
	cmd := &cobra.Command{
		Use:   "play [query]",
		Short: "Play the filtered video list, starting at --index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if listenArg != "" {
				cfg.Control.Listen = listenArg
			}
			logger := xlog.WithComponent("main")
			out := cmd.OutOrStdout()

			h, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			defer h.Close()

			res := h.index.Load(cmd.Context())
			if res.Notice != "" {
				fmt.Fprintln(out, res.Notice)
			}
			gal := gallery.New()
			gal.SetVideos(res.Paths)
			if len(args) == 1 {
				gal.SetQuery(args[0])
			}
			paths, start := gal.Visible(), index
			var startMs int64
			if resume {
				start, startMs = resumeStart(cfg, paths, start, out)
			}
			if sel, err := gal.Open(start); err == nil {
				paths, start = sel.Paths, sel.StartIndex
			}

			local, err := vlc.New(vlc.Config{
				Backend:    cfg.Player.Backend,
				Path:       cfg.Player.VLCPath,
				HTTPPort:   cfg.Player.HTTPPort,
				Fullscreen: true,
			})
			if err != nil {
				return fmt.Errorf("local player: %w", err)
			}

			var screen *player.Screen
			remote := newRemote(cfg, castFlag, func() {
				if screen != nil {
					_ = screen.CastEnded()
				}
			})

			opts := player.Options{
				Local:             local,
				Remote:            remote,
				Geometry:          player.Geometry{Width: float64(cfg.Player.ViewWidth), Height: float64(cfg.Player.ViewHeight)},
				PollInterval:      cfg.Player.PollInterval,
				AutoLoadSubtitles: cfg.Player.AutoLoadSubtitles,
				StartPositionMs:   startMs,
				OnNotice:          func(msg string) { fmt.Fprintln(out, "»", msg) },
			}
			if mixer := system.NewMixer(); mixer.Available() {
				opts.Volume = mixer
			}
			screen = player.NewScreen(paths, start, opts)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			eg, ctx := errgroup.WithContext(ctx)

			eg.Go(func() error {
				defer cancel()
				return screen.Run(ctx)
			})
			if cfg.Library.Watch {
				w, err := library.NewWatcher(h.index, func(r library.LoadResult) {
					logger.Info().Int("videos", len(r.Paths)).Msg("library changed")
				})
				if err != nil {
					logger.Warn().Err(err).Msg("library watcher unavailable")
				} else {
					defer w.Stop()
					eg.Go(func() error { return w.Start(ctx) })
				}
			}
			if cfg.Control.Listen != "" {
				srv := control.New(control.Options{
					Videos:         h.videos,
					Player:         screen,
					Health:         func() system.HealthStatus { return healthCheck(cfg) },
					RateLimit:      cfg.Control.RateLimit,
					AllowedOrigins: cfg.Control.AllowedOrigins,
				})
				eg.Go(func() error { return srv.Serve(ctx, cfg.Control.Listen) })
			}
			if !noInput {
				eg.Go(func() error {
					readCommands(ctx, os.Stdin, out, screen, cancel)
					return nil
				})
			}
			if castFlag && remote != nil {
				if err := screen.CastAvailable(); err != nil {
					fmt.Fprintln(out, "» Cast failed:", err)
				}
			}

			runErr := eg.Wait()
			if r, ok := screen.Resume(); ok {
				if err := player.SaveResume(resumePath(cfg), r); err != nil {
					logger.Warn().Err(err).Msg("save resume point")
				}
			}
			if err := screen.Close(); err != nil {
				logger.Warn().Err(err).Msg("release players")
			}
			logger.Info().Msg("shutdown complete")
			return runErr
		},
	}
	cmd.Flags().IntVarP(&index, "index", "i", 0, "Start at this position in the filtered list")
	cmd.Flags().BoolVar(&castFlag, "cast", false, "Start playback on the configured cast device")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume the last watched video where it stopped")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Do not read commands from stdin")
	cmd.Flags().StringVar(&listenArg, "listen", "", "Serve the control API on this address (overrides control.listen)")
	return cmd
}

// resumeStart finds the saved resume point in paths. When it is gone the
// requested start index is kept.
func resumeStart(cfg config.Config, paths []string, start int, out io.Writer) (int, int64) {
	r, ok, err := player.LoadResume(resumePath(cfg))
	switch {
	case err != nil:
		logger := xlog.WithComponent("main")
		logger.Warn().Err(err).Msg("read resume point")
		return start, 0
	case !ok:
		return start, 0
	}
	i := player.ResumeIndex(paths, r)
	if i < 0 {
		fmt.Fprintln(out, "» Last watched video is not in this list")
		return start, 0
	}
	return i, r.PositionMs
}

// newRemote creates the cast engine when a device is configured. Any
// failure disables casting for the session.
func newRemote(cfg config.Config, requested bool, onEnded func()) player.Transport {
	logger := xlog.WithComponent("cast")
	if cfg.Cast.Device == "" {
		if requested {
			logger.Warn().Msg("--cast given but cast.device is not configured")
		}
		return nil
	}
	tr, err := cast.New(cast.Options{
		Device:         cfg.Cast.Device,
		Transcode:      cfg.Cast.Transcode,
		FFmpeg:         cfg.Cast.FFmpeg,
		Prober:         probe.New(),
		OnSessionEnded: onEnded,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("casting disabled")
		return nil
	}
	return tr
}
