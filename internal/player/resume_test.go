package player

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")

	_, ok, err := LoadResume(path)
	require.NoError(t, err)
	assert.False(t, ok)

	saved := Resume{Path: "/v/b.mp4", PositionMs: 61_000, SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveResume(path, saved))

	got, ok, err := LoadResume(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.Path, got.Path)
	assert.Equal(t, saved.PositionMs, got.PositionMs)
	assert.True(t, saved.SavedAt.Equal(got.SavedAt))

	assert.Equal(t, 1, ResumeIndex([]string{"/v/a.mp4", "/v/b.mp4"}, got))
	assert.Equal(t, -1, ResumeIndex([]string{"/v/a.mp4"}, got))
}

func TestLoadResumeCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, _, err := LoadResume(path)
	require.Error(t, err)
}
