package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "vidgallery/internal/log"
)

const mixerTimeout = 2 * time.Second

// percentRe matches the "[75%]" field amixer prints per channel.
var percentRe = regexp.MustCompile(`\[(\d{1,3})%\]`)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Mixer drives the ALSA output volume through amixer. Levels are whole
// percentages on the mapped (-M) scale, so the maximum is always 100.
type Mixer struct {
	Binary  string
	Control string
	Run     Runner
	log     zerolog.Logger
}

// NewMixer returns a Mixer for the "Master" control.
func NewMixer() *Mixer {
	return &Mixer{Binary: "amixer", Control: "Master", Run: execRunner, log: xlog.WithComponent("system")}
}

// Available reports whether amixer is installed.
func (m *Mixer) Available() bool {
	_, err := exec.LookPath(m.binary())
	return err == nil
}

func (m *Mixer) Volume() (level, maxVolume int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), mixerTimeout)
	defer cancel()
	out, err := m.run(ctx, "-M", "sget", m.control())
	if err != nil {
		return 0, 0, fmt.Errorf("read volume: %w", err)
	}
	level, err = ParseMixerLevel(out)
	if err != nil {
		return 0, 0, err
	}
	return level, 100, nil
}

func (m *Mixer) SetVolume(level int) error {
	level = min(max(level, 0), 100)
	ctx, cancel := context.WithTimeout(context.Background(), mixerTimeout)
	defer cancel()
	if _, err := m.run(ctx, "-q", "-M", "sset", m.control(), strconv.Itoa(level)+"%"); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	m.log.Debug().Int("level", level).Msg("volume set")
	return nil
}

func (m *Mixer) run(ctx context.Context, args ...string) ([]byte, error) {
	run := m.Run
	if run == nil {
		run = execRunner
	}
	return run(ctx, m.binary(), args...)
}

func (m *Mixer) binary() string {
	if m.Binary == "" {
		return "amixer"
	}
	return m.Binary
}

func (m *Mixer) control() string {
	if m.Control == "" {
		return "Master"
	}
	return m.Control
}

// ParseMixerLevel returns the first channel percentage in amixer output.
func ParseMixerLevel(out []byte) (int, error) {
	match := percentRe.FindSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("no volume level in amixer output")
	}
	level, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return 0, fmt.Errorf("parse volume level: %w", err)
	}
	return level, nil
}
