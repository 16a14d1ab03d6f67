package media

import (
	"fmt"
	"time"
)

// UnknownDuration is shown when a duration cannot be extracted.
const UnknownDuration = "--:--"

// FormatDuration renders d as mm:ss, or h:mm:ss once it reaches an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatMillis is FormatDuration for a millisecond count.
func FormatMillis(ms int64) string {
	return FormatDuration(time.Duration(ms) * time.Millisecond)
}

// FormatSize renders a byte count the way the gallery rows show it.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes < kb:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	case bytes < gb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gb)
	}
}

// DateBucket renders a modification time relative to now: "Today",
// "Yesterday", "N days ago" within a week, otherwise "Jan 02, 2006".
func DateBucket(modified, now time.Time) string {
	const day = 24 * time.Hour
	diff := now.Sub(modified)
	switch {
	case diff < day:
		return "Today"
	case diff < 2*day:
		return "Yesterday"
	case diff < 7*day:
		return fmt.Sprintf("%d days ago", int64(diff/day))
	default:
		return modified.Format("Jan 02, 2006")
	}
}
