package vlc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

const testPassword = "secret"

type fakeItem struct {
	id     int
	input  string
	option string
}

// fakeVLC emulates the parts of the VLC Lua HTTP interface the engine uses.
type fakeVLC struct {
	mu       sync.Mutex
	items    []fakeItem
	nextID   int
	current  int
	state    string
	time     float64
	length   float64
	rate     float64
	audio    int
	commands []string
}

func newFakeVLC(t *testing.T) (*fakeVLC, *httptest.Server) {
	t.Helper()
	f := &fakeVLC{nextID: 3, current: -1, state: "stopped", rate: 1, length: 0}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeVLC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, pw, ok := r.BasicAuth(); !ok || pw != testPassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/requests/status.json":
		f.apply(r)
		_ = json.NewEncoder(w).Encode(f.statusLocked())
	case "/requests/playlist.json":
		_ = json.NewEncoder(w).Encode(f.playlistLocked())
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeVLC) apply(r *http.Request) {
	q := r.URL.Query()
	cmd := q.Get("command")
	if cmd == "" {
		return
	}
	f.commands = append(f.commands, cmd)
	switch cmd {
	case "in_enqueue":
		f.items = append(f.items, fakeItem{id: f.nextID, input: q.Get("input"), option: q.Get("option")})
		f.nextID++
	case "pl_empty":
		f.items = nil
		f.current = -1
	case "pl_stop":
		f.state = "stopped"
	case "pl_play":
		id, _ := strconv.Atoi(q.Get("id"))
		f.current = id
		f.state = "playing"
		f.time = 0
		f.length = 120
	case "pl_forcepause":
		if f.state == "playing" {
			f.state = "paused"
		}
	case "pl_forceresume":
		if f.state == "paused" {
			f.state = "playing"
		}
	case "seek":
		v, _ := strconv.ParseFloat(q.Get("val"), 64)
		f.time = v
	case "rate":
		f.rate, _ = strconv.ParseFloat(q.Get("val"), 64)
	case "audio_track":
		f.audio, _ = strconv.Atoi(q.Get("val"))
	}
}

func (f *fakeVLC) statusLocked() map[string]any {
	st := map[string]any{
		"time":        f.time,
		"length":      f.length,
		"position":    0,
		"state":       f.state,
		"rate":        f.rate,
		"currentplid": f.current,
	}
	if f.current < 0 {
		st["information"] = []any{}
		return st
	}
	st["information"] = map[string]any{
		"category": map[string]any{
			"meta":     map[string]string{"filename": "x.mp4"},
			"Stream 0": map[string]string{"Type": "Video", "Codec": "H264 - MPEG-4 AVC (part 10) (h264)"},
			"Stream 1": map[string]string{"Type": "Audio", "Codec": "MPEG AAC Audio (mp4a)", "Language": "en"},
			"Stream 2": map[string]string{"Type": "Audio", "Codec": "A52 Audio (aka AC3) (a52 )", "Language": "fr"},
		},
	}
	return st
}

func (f *fakeVLC) playlistLocked() map[string]any {
	leaves := make([]map[string]any, 0, len(f.items))
	for _, it := range f.items {
		leaves = append(leaves, map[string]any{
			"type": "leaf", "id": strconv.Itoa(it.id), "name": it.input, "uri": "file://" + it.input,
		})
	}
	return map[string]any{
		"type": "node", "id": "0", "name": "",
		"children": []map[string]any{
			{"type": "node", "id": "1", "name": "Playlist", "children": leaves},
			{"type": "node", "id": "2", "name": "Media Library", "children": []any{}},
		},
	}
}

// advance jumps to the next playlist entry the way VLC does at end of item.
func (f *fakeVLC) advance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.id == f.current && i+1 < len(f.items) {
			f.current = f.items[i+1].id
			f.time = 0
			return
		}
	}
}

type fakeSnapshot struct {
	items    []fakeItem
	current  int
	state    string
	time     float64
	rate     float64
	audio    int
	commands []string
}

func (f *fakeVLC) get() fakeSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeSnapshot{
		items: append([]fakeItem(nil), f.items...), current: f.current, state: f.state,
		time: f.time, rate: f.rate, audio: f.audio, commands: append([]string(nil), f.commands...),
	}
}
