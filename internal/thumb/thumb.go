// Package thumb produces gallery row thumbnails: a generated placeholder,
// and a low-resolution frame grabbed with ffmpeg and cached in Badger.
package thumb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // decode ffmpeg's png pipe
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	xlog "vidgallery/internal/log"

	"github.com/disintegration/imaging"
)

const (
	// Scale is the thumbnail size relative to the source frame.
	Scale = 0.1
	// MinWidth keeps tiny sources legible.
	MinWidth = 64
	// DefaultTTL is how long a generated thumbnail stays cached.
	DefaultTTL = 7 * 24 * time.Hour

	placeholderWidth  = 160
	placeholderHeight = 90
)

// Service grabs and caches thumbnails. A nil cache disables caching.
type Service struct {
	FFmpeg string
	TTL    time.Duration

	cache *Cache

	placeholderOnce sync.Once
	placeholder     []byte
}

// New creates a Service. cache may be nil.
func New(cache *Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{FFmpeg: "ffmpeg", TTL: ttl, cache: cache}
}

// Placeholder returns the PNG shown before (or instead of) a frame.
func (s *Service) Placeholder() []byte {
	s.placeholderOnce.Do(func() {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, placeholderImage(), imaging.PNG); err == nil {
			s.placeholder = buf.Bytes()
		}
	})
	return s.placeholder
}

// Thumbnail returns a JPEG frame thumbnail for path.
func (s *Service) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	logger := xlog.WithComponent("thumb")

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey(path, info.ModTime())

	if s.cache != nil {
		if data, ok, err := s.cache.Get(key); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("cache read")
		} else if ok {
			return data, nil
		}
	}

	frame, err := s.grabFrame(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := Downscale(frame)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(key, data, s.TTL); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("cache write")
		}
	}
	return data, nil
}

// grabFrame extracts one PNG frame one second in, falling back to the
// first frame for clips shorter than that.
func (s *Service) grabFrame(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for _, offset := range []string{"1", "0"} {
		args := []string{
			"-v", "error",
			"-ss", offset,
			"-i", path,
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"-",
		}
		cmd := exec.CommandContext(ctx, s.binary(), args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err == nil {
			err = fmt.Errorf("no frame at %ss", offset)
		}
		lastErr = fmt.Errorf("ffmpeg %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return nil, lastErr
}

func (s *Service) binary() string {
	if s.FFmpeg == "" {
		return "ffmpeg"
	}
	return s.FFmpeg
}

// Downscale decodes an encoded frame and re-encodes it as a JPEG at Scale
// of its width (never narrower than MinWidth, never upscaled).
func Downscale(frame []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	src := img.Bounds().Dx()
	if src == 0 || img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	w := int(float64(src) * Scale)
	if w < MinWidth {
		w = MinWidth
	}
	if w > src {
		w = src
	}
	small := imaging.Resize(img, w, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func cacheKey(path string, mod time.Time) string {
	return path + "|" + strconv.FormatInt(mod.UnixNano(), 10)
}

// placeholderImage draws a light play triangle inside a ring on a dark
// background.
func placeholderImage() image.Image {
	bg := color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}
	fg := color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	img := imaging.New(placeholderWidth, placeholderHeight, bg)

	cx, cy := placeholderWidth/2, placeholderHeight/2
	outer, inner := 30, 26
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			dx, dy := x-cx, y-cy
			d2 := dx*dx + dy*dy
			if d2 <= outer*outer && d2 >= inner*inner {
				img.Set(x, y, fg)
				continue
			}
			// Triangle pointing right, centred slightly right of the ring centre.
			tx := dx + 4
			if tx >= -10 && tx <= 12 {
				half := (12 - tx) * 14 / 22
				if dy >= -half && dy <= half {
					img.Set(x, y, fg)
				}
			}
		}
	}
	return img
}
