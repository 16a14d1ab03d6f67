package thumb

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func decodedWidth(t *testing.T, data []byte) int {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx()
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		wantWidth int
	}{
		{name: "tenth of 1920", w: 1920, h: 1080, wantWidth: 192},
		{name: "floor at min width", w: 320, h: 240, wantWidth: MinWidth},
		{name: "never upscale", w: 40, h: 30, wantWidth: 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Downscale(encodePNG(t, tt.w, tt.h))
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, decodedWidth(t, out))
		})
	}

	_, err := Downscale([]byte("not an image"))
	require.Error(t, err)
}

func TestPlaceholderIsStablePNG(t *testing.T) {
	s := New(nil, 0)
	p := s.Placeholder()
	require.NotEmpty(t, p)
	assert.Equal(t, placeholderWidth, decodedWidth(t, p))
	assert.Equal(t, p, s.Placeholder())
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	c, err := OpenCache("")
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("k", []byte("v"), time.Hour))
	got, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Put("short", []byte("v"), time.Second))
	time.Sleep(1100 * time.Millisecond)
	_, ok, err = c.Get("short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are not served")
}

// fakeFFmpeg writes a script that emits the given PNG on stdout and counts
// its invocations in a side file.
func fakeFFmpeg(t *testing.T, png []byte) (bin, counter string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.png")
	counter = filepath.Join(dir, "calls")
	require.NoError(t, os.WriteFile(frame, png, 0o644))
	bin = filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho x >> " + counter + "\ncat " + frame + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, counter
}

func TestThumbnailCachesByModTime(t *testing.T) {
	bin, counter := fakeFFmpeg(t, encodePNG(t, 1280, 720))
	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	c, err := OpenCache("")
	require.NoError(t, err)
	defer c.Close()

	s := New(c, time.Hour)
	s.FFmpeg = bin

	ctx := context.Background()
	first, err := s.Thumbnail(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, 128, decodedWidth(t, first))

	second, err := s.Thumbnail(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	calls, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(calls, []byte("x")), "second call is served from cache")

	// Touching the file invalidates the key.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(video, later, later))
	_, err = s.Thumbnail(ctx, video)
	require.NoError(t, err)
	calls, err = os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(calls, []byte("x")))
}

func TestThumbnailMissingFile(t *testing.T) {
	s := New(nil, 0)
	_, err := s.Thumbnail(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"))
	require.Error(t, err)
}
