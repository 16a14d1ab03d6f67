package vlc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgallery/internal/media"
	"vidgallery/internal/player"
)

func newAttached(t *testing.T) (*fakeVLC, *Subprocess) {
	t.Helper()
	f, srv := newFakeVLC(t)
	s := attach(NewClient(srv.URL, testPassword), 10*time.Millisecond)
	t.Cleanup(func() { _ = s.Release() })
	return f, s
}

func sources() []media.Source {
	return []media.Source{
		{Path: "/v/a.mp4"},
		{Path: "/v/b.mp4", Subtitle: &media.SubtitleTrack{Path: "/v/b.srt", MIMEType: media.SubtitleMIMEType, Language: "en"}},
		{Path: "/v/c.mp4"},
	}
}

func TestLoadStagesUntilPlay(t *testing.T) {
	f, s := newAttached(t)

	require.NoError(t, s.Load(sources(), 1, 5000))
	assert.Equal(t, 3, s.ItemCount())
	assert.Equal(t, 1, s.CurrentIndex())
	assert.EqualValues(t, 5000, s.Position())
	assert.False(t, s.IsPlaying())

	got := f.get()
	require.Len(t, got.items, 3)
	assert.Equal(t, ":sub-file=/v/b.srt", got.items[1].option)
	assert.Empty(t, got.items[0].option)
	assert.Equal(t, -1, got.current, "nothing plays before Play")

	require.NoError(t, s.SeekTo(7000))
	assert.EqualValues(t, 7000, s.Position())

	require.NoError(t, s.Play())
	got = f.get()
	assert.Equal(t, got.items[1].id, got.current)
	assert.Equal(t, "playing", got.state)
	assert.EqualValues(t, 7, got.time)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestLoadRejectsEmpty(t *testing.T) {
	_, s := newAttached(t)
	require.ErrorIs(t, s.Load(nil, 0, 0), player.ErrNoMedia)
}

func TestReloadReplacesPlaylist(t *testing.T) {
	f, s := newAttached(t)
	require.NoError(t, s.Load(sources(), 0, 0))
	require.NoError(t, s.Load(sources()[:2], 5, 0))

	got := f.get()
	assert.Len(t, got.items, 2)
	assert.Equal(t, 0, s.CurrentIndex(), "out-of-range index clamps to the first item")
}

func TestPauseResumeAndSpeed(t *testing.T) {
	f, s := newAttached(t)
	require.NoError(t, s.SetSpeed(1.5))
	require.NoError(t, s.Load(sources(), 0, 0))
	require.NoError(t, s.Play())
	assert.EqualValues(t, 1.5, f.get().rate, "speed set before start is applied on Play")

	require.NoError(t, s.Pause())
	assert.Equal(t, "paused", f.get().state)
	require.NoError(t, s.Play())
	assert.Equal(t, "playing", f.get().state)

	require.NoError(t, s.SetSpeed(0.5))
	assert.EqualValues(t, 0.5, f.get().rate)
}

func TestSeekToItemKeepsPauseState(t *testing.T) {
	f, s := newAttached(t)
	require.NoError(t, s.Load(sources(), 0, 0))
	require.NoError(t, s.Play())
	require.NoError(t, s.Pause())

	require.NoError(t, s.SeekToItem(2, 3000))
	got := f.get()
	assert.Equal(t, got.items[2].id, got.current)
	assert.Equal(t, "paused", got.state)
	assert.EqualValues(t, 3, got.time)

	require.Error(t, s.SeekToItem(3, 0))
}

func TestMonitorEmitsTransitions(t *testing.T) {
	f, s := newAttached(t)
	transitions := make(chan int, 8)
	playing := make(chan bool, 8)
	s.SetListener(player.Listener{
		OnItemTransition:   func(i int) { transitions <- i },
		OnIsPlayingChanged: func(p bool) { playing <- p },
	})
	require.NoError(t, s.Load(sources(), 0, 0))
	require.NoError(t, s.Play())

	require.Equal(t, 0, waitFor(t, transitions))
	require.True(t, waitFor(t, playing))

	f.advance()
	require.Equal(t, 1, waitFor(t, transitions))
	require.Eventually(t, func() bool { return s.CurrentIndex() == 1 }, time.Second, 10*time.Millisecond)
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func TestAudioTracks(t *testing.T) {
	f, s := newAttached(t)
	require.NoError(t, s.Load(sources(), 0, 0))
	require.NoError(t, s.Play())

	groups, err := s.Tracks()
	require.NoError(t, err)
	choices, selected := player.AudioChoices(groups)
	require.Len(t, choices, 2)
	assert.Equal(t, 0, selected)
	assert.Equal(t, "EN (MP4A)", choices[0].Label)
	assert.Equal(t, "FR (A52)", choices[1].Label)

	require.NoError(t, s.ClearAudioOverrides())
	require.NoError(t, s.OverrideAudioTrack(choices[1].Group, choices[1].Track))
	assert.Equal(t, 2, f.get().audio)

	groups, err = s.Tracks()
	require.NoError(t, err)
	_, selected = player.AudioChoices(groups)
	assert.Equal(t, 1, selected)

	require.NoError(t, s.ClearAudioOverrides())
	assert.Equal(t, 1, f.get().audio)

	video := 0
	require.Error(t, s.OverrideAudioTrack(video, 0), "video groups cannot be selected as audio")
}

func TestReleaseIsIdempotent(t *testing.T) {
	_, s := newAttached(t)
	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	require.ErrorIs(t, s.Load(sources(), 0, 0), player.ErrReleased)
}

func TestNewSubprocessValidates(t *testing.T) {
	_, err := NewSubprocess(Config{Path: "/usr/bin/true", HTTPPort: 0})
	require.Error(t, err)

	s, err := NewSubprocess(Config{Path: "/usr/bin/true", HTTPPort: 9090})
	require.NoError(t, err)
	assert.NotEmpty(t, s.cfg.Password, "a password is generated")
	require.NoError(t, s.Release())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "gstreamer"})
	require.Error(t, err)
}

func TestSubprocessArgs(t *testing.T) {
	args := subprocessArgs(Config{HTTPPort: 9191, Password: "pw", Fullscreen: true, ExtraArgs: []string{"--aout=alsa"}})
	assert.Contains(t, args, "--fullscreen")
	assert.Contains(t, args, "--aout=alsa")
	assert.Contains(t, args, "--http-port=9191")
	assert.Contains(t, args, "--http-password=pw")
	assert.Contains(t, args, "--http-host=127.0.0.1")
	assert.NotContains(t, args, "--loop")
}

func TestSubtitleOption(t *testing.T) {
	assert.Empty(t, subtitleOption(media.Source{Path: "/v/a.mp4"}))
	assert.Empty(t, subtitleOption(media.Source{Path: "/v/a.mp4", Subtitle: &media.SubtitleTrack{}}))
	got := subtitleOption(media.Source{Path: "/v/b.mp4", Subtitle: &media.SubtitleTrack{Path: "/v/b.srt"}})
	assert.Equal(t, ":sub-file=/v/b.srt", got)
}
