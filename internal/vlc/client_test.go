package vlc

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRejectsWrongPassword(t *testing.T) {
	_, srv := newFakeVLC(t)
	c := NewClient(srv.URL, "nope")
	_, err := c.Status(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestClientCommandAndPlaylist(t *testing.T) {
	f, srv := newFakeVLC(t)
	c := NewClient(srv.URL+"/", testPassword)
	ctx := context.Background()

	for _, p := range []string{"/v/a.mp4", "/v/b.mkv"} {
		_, err := c.Command(ctx, "in_enqueue", url.Values{"input": {p}})
		require.NoError(t, err)
	}
	items, err := c.Playlist(ctx)
	require.NoError(t, err)
	want := []PlaylistItem{
		{ID: 3, Name: "/v/a.mp4", URI: "file:///v/a.mp4"},
		{ID: 4, Name: "/v/b.mkv", URI: "file:///v/b.mkv"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("playlist mismatch (-want +got):\n%s", diff)
	}

	st, err := c.Command(ctx, "pl_play", url.Values{"id": {"4"}})
	require.NoError(t, err)
	assert.True(t, st.Playing())
	assert.Equal(t, 4, st.CurrentPLID)
	assert.EqualValues(t, 120_000, st.LengthMs())
	assert.Equal(t, []string{"in_enqueue", "in_enqueue", "pl_play"}, f.get().commands)
}

func TestStatusStreams(t *testing.T) {
	empty := Status{Information: json.RawMessage(`[]`)}
	assert.Nil(t, empty.Streams(), "VLC sends [] when idle")

	st := Status{Information: json.RawMessage(`{"category":{
		"meta":{"title":"x"},
		"Stream 10":{"Type":"Audio","Codec":"Opus (opus)","Language":"de"},
		"Stream 2":{"Type":"Video","Codec":"VP9 (VP90)"},
		"Stream x":{"Type":"Audio"}
	}}`)}
	got := st.Streams()
	want := []Stream{
		{ID: 2, Type: "Video", Codec: "VP9 (VP90)"},
		{ID: 10, Type: "Audio", Codec: "Opus (opus)", Language: "de"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("streams mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusPositionPrefersFraction(t *testing.T) {
	assert.EqualValues(t, 12_000, Status{Time: 12}.PositionMs())
	assert.EqualValues(t, 30_500, Status{Time: 30, Length: 61, Position: 0.5}.PositionMs())
	assert.EqualValues(t, 0, Status{Length: -1}.LengthMs())
}

func TestWaitReadyTimesOut(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", testPassword)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.WaitReady(ctx, 10*time.Millisecond), ErrUnreachable)
}
