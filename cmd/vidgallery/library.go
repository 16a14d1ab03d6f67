package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vidgallery/internal/config"
	"vidgallery/internal/gallery"
	"vidgallery/internal/library"
	xlog "vidgallery/internal/log"
	"vidgallery/internal/probe"
	"vidgallery/internal/system"
	"vidgallery/internal/thumb"
)

// libraryHandle owns the index database and, when enabled, the
// thumbnail cache.
type libraryHandle struct {
	store  *library.Store
	index  *library.Index
	thumbs *thumb.Cache
}

func openLibrary(cfg config.Config) (*libraryHandle, error) {
	if err := system.EnsureDir(filepath.Dir(cfg.Library.IndexPath)); err != nil {
		return nil, fmt.Errorf("index dir: %w", err)
	}
	store, err := library.NewStore(cfg.Library.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &libraryHandle{store: store, index: library.NewIndex(store, cfg.Library.Roots)}, nil
}

// gallery builds a gallery over the index with the ffprobe prober, the
// store as duration cache and, unless disabled, the thumbnail service.
func (h *libraryHandle) gallery(cfg config.Config) *gallery.Gallery {
	opts := []gallery.Option{gallery.WithDurationCache(h.store)}
	if p := probe.New(); p.Available() {
		opts = append(opts, gallery.WithProber(p))
	}
	if !cfg.Thumbnails.Disabled {
		if h.thumbs == nil {
			c, err := thumb.OpenCache(cfg.Thumbnails.CacheDir)
			if err != nil {
				logger := xlog.WithComponent("thumb")
				logger.Warn().Err(err).Msg("thumbnail cache unavailable, using memory")
				c, err = thumb.OpenCache("")
			}
			if err == nil {
				h.thumbs = c
			}
		}
		opts = append(opts, gallery.WithThumbnailer(thumb.New(h.thumbs, cfg.Thumbnails.TTL)))
	}
	return gallery.New(opts...)
}

func (h *libraryHandle) Close() error {
	var errs []error
	if h.thumbs != nil {
		errs = append(errs, h.thumbs.Close())
	}
	errs = append(errs, h.store.Close())
	return errors.Join(errs...)
}

// videos lists the index for the control API without rescanning.
func (h *libraryHandle) videos(ctx context.Context) ([]string, error) {
	if h.index.Denied() {
		return nil, library.ErrPermissionDenied
	}
	return h.index.Query(ctx)
}

func scanCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Rescan the library roots and update the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			h, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			defer h.Close()

			res, err := h.index.Refresh(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed : %d\n", res.Indexed)
			fmt.Fprintf(out, "Pruned  : %d\n", res.Pruned)
			fmt.Fprintf(out, "Skipped : %d\n", res.Skipped)
			if len(res.MissingRoots) > 0 {
				fmt.Fprintf(out, "Missing : %s\n", strings.Join(res.MissingRoots, ", "))
			}
			if len(res.DeniedRoots) > 0 {
				fmt.Fprintf(out, "Denied  : %s\n", strings.Join(res.DeniedRoots, ", "))
			}
			fmt.Fprintf(out, "Took    : %s\n", res.Finished.Sub(res.Started).Round(time.Millisecond))
			return err
		},
	}
}

func listCmd(g *globalFlags) *cobra.Command {
	var thumbnails bool
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List indexed videos, newest first, filtered by file name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			h, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			defer h.Close()

			out := cmd.OutOrStdout()
			res := h.index.Load(cmd.Context())
			if res.Notice != "" {
				fmt.Fprintln(out, res.Notice)
			}
			gal := h.gallery(cfg)
			gal.SetVideos(res.Paths)
			if len(args) == 1 {
				gal.SetQuery(args[0])
			}
			rows := gal.Rows(cmd.Context())

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tDURATION\tSIZE\tMODIFIED")
			for i, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, r.Name, r.Duration, r.Size, r.Modified)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, gal.CountLabel())

			if thumbnails && !cfg.Thumbnails.Disabled {
				ready := 0
				gal.LoadThumbnails(cmd.Context(), rows, func(int, []byte) { ready++ })
				fmt.Fprintf(out, "%d of %d thumbnails ready\n", ready, len(rows))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&thumbnails, "thumbnails", false, "Generate and cache thumbnails for the listed videos")
	return cmd
}
