package gallery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"vidgallery/internal/library"
	xlog "vidgallery/internal/log"
	"vidgallery/internal/media"

	"golang.org/x/sync/errgroup"
)

// DurationProber extracts a video's duration.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Thumbnailer renders row thumbnails. Placeholder is shown until
// Thumbnail returns a frame.
type Thumbnailer interface {
	Placeholder() []byte
	Thumbnail(ctx context.Context, path string) ([]byte, error)
}

// DurationCache remembers probed durations between runs.
type DurationCache interface {
	Get(ctx context.Context, path string) (library.Video, bool, error)
	SetDuration(ctx context.Context, path string, ms int64) error
}

// Row is the display binding for one visible video.
type Row struct {
	Path      string
	Name      string
	Size      string
	Duration  string
	Modified  string
	Thumbnail []byte
}

// Selection is what a row tap hands to the player.
type Selection struct {
	Paths      []string
	StartIndex int
}

// Gallery holds the full list and the current filter. It is not safe for
// concurrent mutation; callers drive it from one goroutine.
type Gallery struct {
	all     []string
	query   string
	visible []string

	prober DurationProber
	thumbs Thumbnailer
	cache  DurationCache
	now    func() time.Time

	// Workers bounds concurrent metadata extraction.
	Workers int
}

// Option configures a Gallery.
type Option func(*Gallery)

// WithProber sets the duration collaborator.
func WithProber(p DurationProber) Option { return func(g *Gallery) { g.prober = p } }

// WithThumbnailer sets the thumbnail collaborator.
func WithThumbnailer(t Thumbnailer) Option { return func(g *Gallery) { g.thumbs = t } }

// WithDurationCache sets where probed durations are remembered.
func WithDurationCache(c DurationCache) Option { return func(g *Gallery) { g.cache = c } }

// New creates an empty gallery.
func New(opts ...Option) *Gallery {
	g := &Gallery{now: time.Now, Workers: 4}
	for _, o := range opts {
		o(g)
	}
	return g
}

// SetVideos replaces the full list (a reload) and reapplies the filter.
func (g *Gallery) SetVideos(paths []string) {
	g.all = append([]string(nil), paths...)
	g.visible = Filter(g.all, g.query)
}

// SetQuery updates the filter state and recomputes the visible subset.
// Called on every keystroke; no debounce.
func (g *Gallery) SetQuery(q string) {
	g.query = q
	g.visible = Filter(g.all, q)
}

// Query returns the current filter text.
func (g *Gallery) Query() string { return g.query }

// All returns the unfiltered list.
func (g *Gallery) All() []string { return append([]string(nil), g.all...) }

// Visible returns the filtered list in view order.
func (g *Gallery) Visible() []string { return append([]string(nil), g.visible...) }

// CountLabel renders the caption for the visible count.
func (g *Gallery) CountLabel() string { return CountLabel(len(g.visible)) }

// Open hands the visible list and the tapped row to the player.
func (g *Gallery) Open(index int) (Selection, error) {
	if index < 0 || index >= len(g.visible) {
		return Selection{}, fmt.Errorf("row %d out of range (have %d)", index, len(g.visible))
	}
	return Selection{Paths: g.Visible(), StartIndex: index}, nil
}

// Rows binds every visible path to a display row. Metadata failures only
// affect the row concerned: a missing file shows empty size/date, a failed
// probe shows "--:--". Thumbnails start as the placeholder.
func (g *Gallery) Rows(ctx context.Context) []Row {
	rows := make([]Row, len(g.visible))
	var placeholder []byte
	if g.thumbs != nil {
		placeholder = g.thumbs.Placeholder()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, g.Workers))
	for i, p := range g.visible {
		rows[i] = Row{
			Path:      p,
			Name:      media.Name(p),
			Duration:  media.UnknownDuration,
			Thumbnail: placeholder,
		}
		eg.Go(func() error {
			g.bindMetadata(ctx, &rows[i])
			return nil
		})
	}
	_ = eg.Wait()
	return rows
}

func (g *Gallery) bindMetadata(ctx context.Context, row *Row) {
	if info, err := os.Stat(row.Path); err == nil {
		row.Size = media.FormatSize(info.Size())
		row.Modified = media.DateBucket(info.ModTime(), g.now())
	}
	if d, ok := g.duration(ctx, row.Path); ok {
		row.Duration = media.FormatDuration(d)
	}
}

func (g *Gallery) duration(ctx context.Context, path string) (time.Duration, bool) {
	logger := xlog.WithComponent("gallery")

	if g.cache != nil {
		if v, ok, err := g.cache.Get(ctx, path); err == nil && ok && v.DurationMs > 0 {
			return time.Duration(v.DurationMs) * time.Millisecond, true
		}
	}
	if g.prober == nil {
		return 0, false
	}
	d, err := g.prober.Duration(ctx, path)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("duration unavailable")
		return 0, false
	}
	if g.cache != nil {
		if err := g.cache.SetDuration(ctx, path, d.Milliseconds()); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cache duration")
		}
	}
	return d, true
}

// LoadThumbnails fetches the frame thumbnail for each row in the
// background and reports each one through update as it arrives. Rows whose
// extraction fails keep their placeholder and are not reported.
func (g *Gallery) LoadThumbnails(ctx context.Context, rows []Row, update func(i int, thumb []byte)) {
	if g.thumbs == nil {
		return
	}
	logger := xlog.WithComponent("gallery")

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, g.Workers))
	for i := range rows {
		path := rows[i].Path
		eg.Go(func() error {
			data, err := g.thumbs.Thumbnail(ctx, path)
			if err != nil {
				logger.Debug().Err(err).Str("path", path).Msg("thumbnail unavailable")
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			update(i, data)
			return nil
		})
	}
	_ = eg.Wait()
}
