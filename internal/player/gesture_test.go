package player

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hd = Geometry{Width: 1920, Height: 1080}

func TestSeekTargetHalfWidthDrag(t *testing.T) {
	d := Drag{StartX: 100, StartY: 500, DX: hd.Width / 2}
	require.Equal(t, DragSeek, ClassifyDrag(d, hd))

	target, ok := SeekTarget(d, hd, 20_000, 100_000)
	require.True(t, ok)
	assert.EqualValues(t, 25_000, target)
}

func TestClassifyDrag(t *testing.T) {
	tests := []struct {
		name string
		d    Drag
		g    Geometry
		want DragKind
	}{
		{name: "zero drag", d: Drag{StartX: 1500}, g: hd, want: DragNone},
		{name: "horizontal", d: Drag{StartX: 10, DX: -40, DY: 5}, g: hd, want: DragSeek},
		{name: "vertical right half", d: Drag{StartX: 1500, DX: 3, DY: -200}, g: hd, want: DragVolume},
		{name: "vertical left half", d: Drag{StartX: 200, DX: 3, DY: -200}, g: hd, want: DragNone},
		{name: "vertical on the midline", d: Drag{StartX: 960, DY: -200}, g: hd, want: DragNone},
		{name: "diagonal tie", d: Drag{StartX: 1500, DX: 50, DY: 50}, g: hd, want: DragNone},
		{name: "unknown geometry", d: Drag{DX: 100}, g: Geometry{}, want: DragNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDrag(tt.d, tt.g))
		})
	}
}

func TestSeekTargetUnknownDuration(t *testing.T) {
	_, ok := SeekTarget(Drag{DX: 500}, hd, 0, 0)
	assert.False(t, ok)
	_, ok = SeekTarget(Drag{DX: 500}, hd, 0, -1)
	assert.False(t, ok)
}

func TestVolumeTarget(t *testing.T) {
	// Dragging up a quarter of the height with max 16 raises by 4.
	v, ok := VolumeTarget(Drag{StartX: 1500, DY: -hd.Height / 4}, hd, 8, 16)
	require.True(t, ok)
	assert.Equal(t, 12, v)

	v, ok = VolumeTarget(Drag{StartX: 1500, DY: hd.Height}, hd, 3, 16)
	require.True(t, ok)
	assert.Equal(t, 0, v)

	_, ok = VolumeTarget(Drag{StartX: 1500, DY: -100}, hd, 0, 0)
	assert.False(t, ok)
}

// TestGestureClampsHold checks over random drags that seek and volume
// targets stay within their ranges.
func TestGestureClampsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		d := Drag{
			StartX: rng.Float64() * hd.Width,
			DX:     (rng.Float64()*2 - 1) * hd.Width * 3,
			DY:     (rng.Float64()*2 - 1) * hd.Height * 3,
		}
		dur := rng.Int63n(10_000_000) + 1
		pos := rng.Int63n(dur + 1)
		if target, ok := SeekTarget(d, hd, pos, dur); ok {
			require.GreaterOrEqual(t, target, int64(0))
			require.LessOrEqual(t, target, dur)
		}

		maxVol := rng.Intn(100) + 1
		cur := rng.Intn(maxVol + 1)
		if v, ok := VolumeTarget(d, hd, cur, maxVol); ok {
			require.GreaterOrEqual(t, v, 0)
			require.LessOrEqual(t, v, maxVol)
		}
	}
}

func TestNextZoom(t *testing.T) {
	z := MinZoom
	z = NextZoom(z, 1.5)
	assert.InDelta(t, 1.5, z, 1e-9)
	z = NextZoom(z, 4)
	assert.Equal(t, MaxZoom, z)
	z = NextZoom(z, 0.01)
	assert.Equal(t, MinZoom, z)
	assert.Equal(t, 2.0, NextZoom(2.0, 0), "invalid scale is ignored")
}
