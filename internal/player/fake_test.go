package player

import (
	"errors"
	"sync"

	"vidgallery/internal/media"
)

// fakeTransport is an in-memory engine recording every call.
type fakeTransport struct {
	mu sync.Mutex

	items    []media.Source
	index    int
	position int64
	duration int64
	playing  bool
	speed    float64
	groups   []TrackGroup
	override [2]int
	listener Listener
	released int
	loads    int
	calls    []string
	seeks    []int64

	loadErr     error
	playErr     error
	overrideErr error
}

func newFake(duration int64) *fakeTransport {
	return &fakeTransport{duration: duration, speed: 1.0, index: -1, override: [2]int{-1, -1}}
}

func (f *fakeTransport) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeTransport) Load(items []media.Source, index int, positionMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("load")
	if f.loadErr != nil {
		return f.loadErr
	}
	f.items = append([]media.Source(nil), items...)
	f.index = index
	f.position = positionMs
	f.playing = false
	f.loads++
	return nil
}

func (f *fakeTransport) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play")
	if f.playErr != nil {
		return f.playErr
	}
	if len(f.items) == 0 {
		return ErrNoMedia
	}
	f.playing = true
	return nil
}

func (f *fakeTransport) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	f.playing = false
	return nil
}

func (f *fakeTransport) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeTransport) SeekTo(positionMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek")
	f.seeks = append(f.seeks, positionMs)
	if f.duration > 0 && positionMs > f.duration {
		positionMs = f.duration
	}
	f.position = positionMs
	return nil
}

func (f *fakeTransport) SeekToItem(index int, positionMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek_item")
	if index < 0 || index >= len(f.items) {
		return errors.New("index out of range")
	}
	f.index = index
	f.position = positionMs
	return nil
}

func (f *fakeTransport) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeTransport) Duration() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeTransport) CurrentIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

func (f *fakeTransport) ItemCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeTransport) SetSpeed(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speed = rate
	return nil
}

func (f *fakeTransport) Tracks() ([]TrackGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, nil
}

func (f *fakeTransport) OverrideAudioTrack(group, track int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("override")
	if f.overrideErr != nil {
		return f.overrideErr
	}
	f.override = [2]int{group, track}
	return nil
}

func (f *fakeTransport) ClearAudioOverrides() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("clear_overrides")
	f.override = [2]int{-1, -1}
	return nil
}

func (f *fakeTransport) SetListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeTransport) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func (f *fakeTransport) set(fn func(f *fakeTransport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// fakeState is a lock-free copy of a fakeTransport for assertions.
type fakeState struct {
	items    []media.Source
	index    int
	position int64
	playing  bool
	speed    float64
	override [2]int
	released int
	loads    int
	calls    []string
	seeks    []int64
	listener Listener
}

func (f *fakeTransport) snapshot() fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeState{
		items: f.items, index: f.index, position: f.position, playing: f.playing,
		speed: f.speed, override: f.override, released: f.released, loads: f.loads,
		calls: append([]string(nil), f.calls...), seeks: append([]int64(nil), f.seeks...),
		listener: f.listener,
	}
}

type fakeVolume struct {
	mu    sync.Mutex
	level int
	max   int
}

func (v *fakeVolume) Volume() (int, int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level, v.max, nil
}

func (v *fakeVolume) SetVolume(level int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = level
	return nil
}

func (v *fakeVolume) get() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}
