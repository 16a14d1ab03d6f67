package player

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedLocal(t *testing.T, index int, pos int64, playing bool) (*fakeTransport, []string) {
	t.Helper()
	paths := []string{"/v/a.mp4", "/v/b.mp4", "/v/c.mp4"}
	f := newFake(90_000)
	require.NoError(t, f.Load(BuildSources(paths, true, existsIn("/v/b.srt")), index, pos))
	if playing {
		require.NoError(t, f.Play())
	}
	return f, paths
}

func TestSwitcherRoundTrip(t *testing.T) {
	local, paths := loadedLocal(t, 1, 30_000, true)
	remote := newFake(90_000)
	sw := NewSwitcher(local, remote)

	changed, err := sw.SessionAvailable(BuildSources(paths, true, existsIn("/v/b.srt")))
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, ModeCasting, sw.Mode())
	assert.Same(t, remote, sw.Active())

	r := remote.snapshot()
	assert.Equal(t, 1, r.index)
	assert.EqualValues(t, 30_000, r.position)
	assert.True(t, r.playing)
	for _, it := range r.items {
		assert.Nil(t, it.Subtitle, "subtitles are not sent to the cast device")
	}
	assert.False(t, local.snapshot().playing)

	// The remote moves on before the session ends.
	remote.set(func(f *fakeTransport) { f.index = 2; f.position = 4_000 })

	changed, err = sw.SessionEnded()
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, ModeLocal, sw.Mode())

	l := local.snapshot()
	assert.Equal(t, 2, l.index)
	assert.EqualValues(t, 4_000, l.position)
	assert.True(t, l.playing)
	assert.False(t, remote.snapshot().playing)
}

func TestSwitcherKeepsPausedStatePaused(t *testing.T) {
	local, paths := loadedLocal(t, 0, 1_000, false)
	remote := newFake(90_000)
	sw := NewSwitcher(local, remote)

	_, err := sw.SessionAvailable(BuildSources(paths, false, nil))
	require.NoError(t, err)
	assert.False(t, remote.snapshot().playing)
}

func TestSwitcherSessionEndedWhileLocalIsNoop(t *testing.T) {
	local, _ := loadedLocal(t, 1, 30_000, true)
	remote := newFake(90_000)
	sw := NewSwitcher(local, remote)
	before := local.snapshot()

	changed, err := sw.SessionEnded()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, ModeLocal, sw.Mode())
	assert.Equal(t, before.calls, local.snapshot().calls)
	assert.Empty(t, remote.snapshot().calls)
}

func TestSwitcherWithoutRemote(t *testing.T) {
	local, paths := loadedLocal(t, 0, 0, true)
	sw := NewSwitcher(local, nil)
	assert.False(t, sw.CanCast())

	changed, err := sw.SessionAvailable(BuildSources(paths, false, nil))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, local.snapshot().playing)
}

func TestSwitcherRemoteLoadFailureRestoresLocal(t *testing.T) {
	local, paths := loadedLocal(t, 1, 5_000, true)
	remote := newFake(90_000)
	remote.loadErr = errors.New("device went away")
	sw := NewSwitcher(local, remote)

	changed, err := sw.SessionAvailable(BuildSources(paths, false, nil))
	require.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, ModeLocal, sw.Mode())
	assert.True(t, local.snapshot().playing)
}

func TestSwitcherFailedRestoreKeepsCastError(t *testing.T) {
	local, paths := loadedLocal(t, 0, 1_000, true)
	remote := newFake(90_000)
	remote.loadErr = errors.New("device went away")
	sw := NewSwitcher(local, remote)
	local.set(func(f *fakeTransport) { f.playErr = errors.New("output busy") })

	changed, err := sw.SessionAvailable(BuildSources(paths, false, nil))
	require.ErrorIs(t, err, remote.loadErr)
	assert.False(t, changed)
	calls := local.snapshot().calls
	assert.Equal(t, "play", calls[len(calls)-1], "restoring local was attempted")
}
