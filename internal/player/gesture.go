package player

import "math"

const (
	// SeekDragFactor scales a full-width horizontal drag to this fraction
	// of the item duration.
	SeekDragFactor = 0.1

	MinZoom = 1.0
	MaxZoom = 3.0
)

// Geometry is the size of the video surface in pixels.
type Geometry struct {
	Width  float64
	Height float64
}

// Valid reports whether both dimensions are known.
func (g Geometry) Valid() bool { return g.Width > 0 && g.Height > 0 }

// Drag is one drag gesture measured from where it started.
type Drag struct {
	StartX float64
	StartY float64
	DX     float64
	DY     float64
}

// DragKind is what a drag gesture maps to.
type DragKind int

const (
	DragNone DragKind = iota
	DragSeek
	DragVolume
)

// ClassifyDrag applies the gesture priority rules: horizontal drags seek,
// vertical drags starting in the right half adjust volume, anything else
// (including a zero drag or unknown geometry) does nothing.
func ClassifyDrag(d Drag, g Geometry) DragKind {
	if !g.Valid() {
		return DragNone
	}
	ax, ay := math.Abs(d.DX), math.Abs(d.DY)
	switch {
	case ax > ay:
		return DragSeek
	case ay > ax && d.StartX > g.Width/2:
		return DragVolume
	}
	return DragNone
}

// SeekTarget returns the position a horizontal drag seeks to, clamped to
// [0, durationMs]. ok is false when the duration is unknown.
func SeekTarget(d Drag, g Geometry, positionMs, durationMs int64) (target int64, ok bool) {
	if durationMs <= 0 || !g.Valid() {
		return 0, false
	}
	delta := int64(d.DX / g.Width * float64(durationMs) * SeekDragFactor)
	return clamp64(positionMs+delta, 0, durationMs), true
}

// VolumeTarget returns the level a vertical drag sets, clamped to
// [0, maxVolume]. Dragging up raises the volume. ok is false when the
// maximum is unknown.
func VolumeTarget(d Drag, g Geometry, current, maxVolume int) (target int, ok bool) {
	if maxVolume <= 0 || !g.Valid() {
		return 0, false
	}
	delta := int(math.Round(-d.DY / g.Height * float64(maxVolume)))
	return clampInt(current+delta, 0, maxVolume), true
}

// NextZoom folds one pinch scale step into the accumulated zoom.
func NextZoom(zoom, scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return zoom
	}
	return math.Max(MinZoom, math.Min(zoom*scale, MaxZoom))
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
