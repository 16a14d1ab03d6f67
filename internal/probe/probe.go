// Package probe reads container metadata with ffprobe.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoDuration is returned when ffprobe reports no usable duration
// (live streams, truncated files).
var ErrNoDuration = errors.New("duration missing")

// DefaultTimeout bounds one ffprobe invocation.
const DefaultTimeout = 10 * time.Second

// FFProbe shells out to the ffprobe binary.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
}

// New returns an FFProbe using the binary found on PATH.
func New() *FFProbe {
	return &FFProbe{Binary: "ffprobe", Timeout: DefaultTimeout}
}

// Available reports whether the binary can be located.
func (p *FFProbe) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// Duration returns the container duration of path.
func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	}
	cmd := exec.CommandContext(ctx, p.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return ParseDuration(out)
}

func (p *FFProbe) binary() string {
	if p.Binary == "" {
		return "ffprobe"
	}
	return p.Binary
}

// ParseDuration converts ffprobe's seconds output ("63.120000") to a
// duration.
func ParseDuration(out []byte) (time.Duration, error) {
	value := strings.TrimSpace(string(out))
	if value == "" || value == "N/A" {
		return 0, ErrNoDuration
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if secs <= 0 {
		return 0, ErrNoDuration
	}
	return time.Duration(secs * float64(time.Second)), nil
}
