// Package system wraps the host: output volume, the external binaries
// playback depends on, and disk space for the index and thumbnail cache.
package system

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	xlog "vidgallery/internal/log"
)

// Binary is one external tool the player can use.
type Binary struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	Required bool   `json:"required"`
	Found    bool   `json:"found"`
}

// HealthStatus is a point-in-time snapshot of the host.
type HealthStatus struct {
	Binaries      []Binary  `json:"binaries"`
	DiskPath      string    `json:"disk_path"`
	DiskUsedPct   float64   `json:"disk_used_pct"`
	DiskFreeBytes uint64    `json:"disk_free_bytes"`
	CPUTempC      float64   `json:"cpu_temp_c,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OK reports whether every required binary was found.
func (h HealthStatus) OK() bool {
	for _, b := range h.Binaries {
		if b.Required && !b.Found {
			return false
		}
	}
	return true
}

// Missing lists the names of required binaries that were not found.
func (h HealthStatus) Missing() []string {
	var out []string
	for _, b := range h.Binaries {
		if b.Required && !b.Found {
			out = append(out, b.Name)
		}
	}
	return out
}

// CheckOptions names what RunHealthCheck looks for.
type CheckOptions struct {
	// VLC is the resolved player binary; empty means it was not found.
	VLC      string
	FFmpeg   string
	FFprobe  string
	Amixer   string
	DiskPath string

	LookPath func(string) (string, error)
}

// RunHealthCheck performs a full system health snapshot. Probe failures
// are logged and leave the corresponding field zero.
func RunHealthCheck(opts CheckOptions) HealthStatus {
	log := xlog.WithComponent("system")
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	status := HealthStatus{DiskPath: opts.DiskPath, Timestamp: time.Now()}

	status.Binaries = append(status.Binaries, Binary{Name: "vlc", Path: opts.VLC, Required: true, Found: opts.VLC != ""})
	for _, b := range []struct {
		name, bin string
	}{
		{"ffmpeg", opts.FFmpeg},
		{"ffprobe", opts.FFprobe},
		{"amixer", opts.Amixer},
	} {
		bin := b.bin
		if bin == "" {
			bin = b.name
		}
		entry := Binary{Name: b.name}
		if p, err := lookPath(bin); err == nil {
			entry.Path, entry.Found = p, true
		}
		status.Binaries = append(status.Binaries, entry)
	}

	if status.DiskPath == "" {
		status.DiskPath = "/"
	}
	if pct, free, err := GetDiskUsage(status.DiskPath); err == nil {
		status.DiskUsedPct = pct
		status.DiskFreeBytes = free
	} else {
		log.Warn().Err(err).Str("path", status.DiskPath).Msg("health: disk read error")
	}

	if temp, err := GetCPUTemp(); err == nil {
		status.CPUTempC = temp
	} else {
		log.Debug().Err(err).Msg("health: temp read error")
	}

	log.Info().
		Bool("ok", status.OK()).
		Float64("disk_used_pct", status.DiskUsedPct).
		Float64("cpu_temp_c", status.CPUTempC).
		Msg("health check")
	return status
}

// GetDiskUsage returns the usage percentage and free bytes for the
// filesystem holding path.
func GetDiskUsage(path string) (usedPct float64, freeBytes uint64, err error) {
	if path == "" {
		path = "/"
	}
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	if total == 0 {
		return 0, free, nil
	}
	used := total - st.Bfree*bsize
	// df reports used / (used + available), excluding reserved blocks.
	usedPct = float64(used) / float64(used+free) * 100
	return usedPct, free, nil
}

// GetCPUTemp reads the first thermal zone in degrees Celsius.
func GetCPUTemp() (float64, error) {
	data, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return 0, fmt.Errorf("read cpu temp: %w", err)
	}
	milliC, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse cpu temp: %w", err)
	}
	return milliC / 1000.0, nil
}

// EnsureDir creates a directory and all parents if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
