package player

import (
	"fmt"
	"strconv"
)

// SkipIntervalMs is the skip forward/back step.
const SkipIntervalMs = 10_000

// speedCycle is the order the speed button steps through.
var speedCycle = []float64{1.0, 1.5, 2.0, 0.5, 0.75}

// NextSpeed returns the speed after rate in the cycle. A rate outside the
// cycle resets to 1.0.
func NextSpeed(rate float64) float64 {
	for i, s := range speedCycle {
		if s == rate {
			return speedCycle[(i+1)%len(speedCycle)]
		}
	}
	return 1.0
}

// SpeedLabel renders a rate for the speed caption.
func SpeedLabel(rate float64) string {
	return fmt.Sprintf("%.1fx", rate)
}

// SkipBackTarget is the rewind target; only the lower bound is clamped,
// engines clamp the upper bound themselves.
func SkipBackTarget(positionMs int64) int64 {
	return max(positionMs-SkipIntervalMs, 0)
}

// SkipForwardTarget is the fast-forward target, stopping at the end when
// the duration is known.
func SkipForwardTarget(positionMs, durationMs int64) int64 {
	target := max(positionMs, 0) + SkipIntervalMs
	if durationMs > 0 {
		return min(target, durationMs)
	}
	return target
}

// ProgressMax is the seek bar resolution.
const ProgressMax = 1000

// Progress maps a position onto the seek bar.
func Progress(positionMs, durationMs int64) int {
	if durationMs <= 0 {
		return 0
	}
	return clampInt(int(positionMs*ProgressMax/durationMs), 0, ProgressMax)
}

// ProgressToPosition maps a seek bar value back to a position.
func ProgressToPosition(progress int, durationMs int64) int64 {
	if durationMs <= 0 {
		return 0
	}
	return int64(clampInt(progress, 0, ProgressMax)) * durationMs / ProgressMax
}

// VolumeText renders the volume caption as a whole percentage.
func VolumeText(level, maxVolume int) string {
	if maxVolume <= 0 {
		return "0%"
	}
	return strconv.Itoa(int(float64(level)/float64(maxVolume)*100)) + "%"
}
