// Package metrics provides Prometheus metrics for the gallery and player.
// Labels are bounded enums only; paths and session IDs never become labels.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanTotal counts library scans by outcome (ok, denied, error).
	ScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgallery_scan_total",
		Help: "Total number of library scans, by outcome.",
	}, []string{"outcome"})

	// ScanDuration observes how long a full library scan takes.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidgallery_scan_duration_seconds",
		Help:    "Duration of library scans.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	// VideosIndexed is the number of videos currently in the index.
	VideosIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidgallery_videos_indexed",
		Help: "Current number of indexed videos.",
	})

	// PlayerCommandTotal counts player commands by name.
	PlayerCommandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgallery_player_command_total",
		Help: "Total number of player commands, by command.",
	}, []string{"command"})

	// PlaybackErrorTotal counts engine errors by category.
	PlaybackErrorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgallery_playback_error_total",
		Help: "Total number of playback engine errors, by category.",
	}, []string{"code"})

	// CastTransitionTotal counts source switches by direction (to_cast, to_local).
	CastTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidgallery_cast_transition_total",
		Help: "Total number of local/cast source switches, by direction.",
	}, []string{"direction"})

	// Casting is 1 while playback is on a remote device.
	Casting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidgallery_casting",
		Help: "Whether playback is currently on a cast device.",
	})
)

// RecordScan records one finished scan.
func RecordScan(outcome string, took time.Duration, indexed int) {
	ScanTotal.WithLabelValues(outcome).Inc()
	ScanDuration.Observe(took.Seconds())
	VideosIndexed.Set(float64(indexed))
}

// RecordCommand increments the player command counter.
func RecordCommand(name string) {
	PlayerCommandTotal.WithLabelValues(name).Inc()
}

// RecordPlaybackError increments the playback error counter.
func RecordPlaybackError(code string) {
	PlaybackErrorTotal.WithLabelValues(code).Inc()
}

// RecordCastTransition records a source switch and updates the casting gauge.
func RecordCastTransition(toCast bool) {
	if toCast {
		CastTransitionTotal.WithLabelValues("to_cast").Inc()
		Casting.Set(1)
		return
	}
	CastTransitionTotal.WithLabelValues("to_local").Inc()
	Casting.Set(0)
}
