package gallery

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vidgallery/internal/library"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterScenario(t *testing.T) {
	all := []string{"Vacation.mp4", "clip_vacation2.mov", "Report.mp4"}
	got := Filter(all, "vacation")
	if diff := cmp.Diff([]string{"Vacation.mp4", "clip_vacation2.mov"}, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterEmptyQueryReturnsAll(t *testing.T) {
	all := []string{"/b/2.mp4", "/a/1.mp4"}
	assert.Equal(t, all, Filter(all, ""))
}

func TestFilterMatchesFileNameOnly(t *testing.T) {
	all := []string{"/holiday/clip.mp4", "/x/Holiday-2024.mkv"}
	assert.Equal(t, []string{"/x/Holiday-2024.mkv"}, Filter(all, "HOLIDAY"))
}

// TestFilterProperties checks, over random inputs, that the result is an
// order-preserving subsequence containing exactly the matching names.
func TestFilterProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"Alpha", "beta", "GAMMA", "alphabet", "delta", "Beta_cut", "x"}
	queries := []string{"a", "ALP", "beta", "zz", "t", "_"}

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(8)
		all := make([]string, n)
		for i := range all {
			all[i] = filepath.Join("/dir"+names[rng.Intn(len(names))], names[rng.Intn(len(names))]+".mp4")
		}
		q := queries[rng.Intn(len(queries))]
		got := Filter(all, q)

		j := 0
		for _, p := range all {
			match := strings.Contains(strings.ToLower(filepath.Base(p)), strings.ToLower(q))
			if match {
				require.Less(t, j, len(got))
				require.Equal(t, p, got[j], "order must be preserved")
				j++
			}
		}
		require.Equal(t, j, len(got), "no extra elements")
	}
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "0 videos", CountLabel(0))
	assert.Equal(t, "1 video", CountLabel(1))
	assert.Equal(t, "12 videos", CountLabel(12))
}

func TestGallerySetQueryAndOpen(t *testing.T) {
	g := New()
	g.SetVideos([]string{"/v/Vacation.mp4", "/v/clip_vacation2.mov", "/v/Report.mp4"})
	assert.Equal(t, "3 videos", g.CountLabel())

	g.SetQuery("vacation")
	assert.Equal(t, "2 videos", g.CountLabel())

	sel, err := g.Open(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v/Vacation.mp4", "/v/clip_vacation2.mov"}, sel.Paths)
	assert.Equal(t, 1, sel.StartIndex)

	_, err = g.Open(2)
	require.Error(t, err)

	// A reload keeps the active query applied.
	g.SetVideos([]string{"/v/new_vacation.mp4"})
	assert.Equal(t, []string{"/v/new_vacation.mp4"}, g.Visible())
}

type fakeProber struct {
	durations map[string]time.Duration
	calls     int
	mu        sync.Mutex
}

func (f *fakeProber) Duration(_ context.Context, path string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if d, ok := f.durations[path]; ok {
		return d, nil
	}
	return 0, errors.New("probe failed")
}

type fakeThumbs struct{ fail map[string]bool }

func (f fakeThumbs) Placeholder() []byte { return []byte("placeholder") }

func (f fakeThumbs) Thumbnail(_ context.Context, path string) ([]byte, error) {
	if f.fail[path] {
		return nil, errors.New("no frame")
	}
	return []byte("thumb:" + filepath.Base(path)), nil
}

type memCache struct {
	mu sync.Mutex
	ms map[string]int64
}

func (m *memCache) Get(_ context.Context, path string) (library.Video, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.ms[path]
	return library.Video{Path: path, DurationMs: ms}, ok, nil
}

func (m *memCache) SetDuration(_ context.Context, path string, ms int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ms[path] = ms
	return nil
}

func TestRowsDegradePerItem(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mp4")
	bad := filepath.Join(dir, "bad.mp4")
	gone := filepath.Join(dir, "gone.mp4")
	require.NoError(t, os.WriteFile(good, make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))

	prober := &fakeProber{durations: map[string]time.Duration{good: 65 * time.Second}}
	cache := &memCache{ms: map[string]int64{}}
	g := New(WithProber(prober), WithThumbnailer(fakeThumbs{fail: map[string]bool{bad: true}}), WithDurationCache(cache))
	g.SetVideos([]string{good, bad, gone})

	rows := g.Rows(context.Background())
	require.Len(t, rows, 3)

	assert.Equal(t, "good.mp4", rows[0].Name)
	assert.Equal(t, "2.0 KB", rows[0].Size)
	assert.Equal(t, "01:05", rows[0].Duration)
	assert.Equal(t, "Today", rows[0].Modified)
	assert.Equal(t, []byte("placeholder"), rows[0].Thumbnail)

	assert.Equal(t, "--:--", rows[1].Duration)
	assert.Equal(t, "1 B", rows[1].Size)

	assert.Equal(t, "--:--", rows[2].Duration)
	assert.Empty(t, rows[2].Size)

	assert.EqualValues(t, 65_000, cache.ms[good])

	// Second pass is served from the cache.
	before := prober.calls
	rows = g.Rows(context.Background())
	assert.Equal(t, "01:05", rows[0].Duration)
	assert.Equal(t, before+2, prober.calls, "only uncached rows are probed again")

	got := map[int][]byte{}
	g.LoadThumbnails(context.Background(), rows, func(i int, data []byte) { got[i] = data })
	assert.Equal(t, []byte("thumb:good.mp4"), got[0])
	assert.NotContains(t, got, 1)
}
