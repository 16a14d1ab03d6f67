package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vidgallery/internal/control"
	"vidgallery/internal/player"
)

const replHelp = `commands:
  p | pause          toggle play/pause
  f | b              skip forward / back 10s
  n | prev           next / previous video
  seek <0-100>       seek to a percentage
  vol <level>        set the system volume
  speed              cycle playback speed
  subs | autosubs    toggle subtitle visibility / sidecar loading
  aspect             toggle fit / fill
  audio [n]          list audio tracks or select track n
  cast | local       move playback to the cast device / back here
  status             show the current view
  q | quit           stop playback`

var errQuit = errors.New("quit")

// readCommands runs REPL lines against p until ctx is done or the user
// quits. EOF stops reading but leaves playback running.
func readCommands(ctx context.Context, in io.Reader, out io.Writer, p control.Player, quit func()) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			err := runCommand(p, line, out)
			if errors.Is(err, errQuit) {
				quit()
				return
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
	}
}

// runCommand executes one REPL line.
func runCommand(p control.Player, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := func() (int, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs a number", fields[0])
		}
		return strconv.Atoi(fields[1])
	}

	switch strings.ToLower(fields[0]) {
	case "p", "pause", "play":
		return p.TogglePlayPause()
	case "f", "fwd":
		return p.SkipForward()
	case "b", "back":
		return p.SkipBack()
	case "n", "next":
		return p.Next()
	case "prev", "previous":
		return p.Previous()
	case "speed":
		return p.CycleSpeed()
	case "subs":
		return p.ToggleSubtitles()
	case "autosubs":
		return p.ToggleAutoLoadSubtitles()
	case "aspect":
		return p.ToggleAspect()
	case "seek":
		pct, err := arg()
		if err != nil {
			return err
		}
		return p.EndSeekDrag(min(max(pct, 0), 100) * player.ProgressMax / 100)
	case "vol", "volume":
		level, err := arg()
		if err != nil {
			return err
		}
		return p.SetVolume(level)
	case "audio":
		if len(fields) > 1 {
			i, err := arg()
			if err != nil {
				return err
			}
			return p.SelectAudioTrack(i)
		}
		menu, err := p.AudioTracks()
		if err != nil {
			return err
		}
		for i, l := range menu.Labels {
			mark := " "
			if i == menu.Selected {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %d  %s\n", mark, i, l)
		}
		return nil
	case "cast":
		return p.CastAvailable()
	case "local":
		return p.CastEnded()
	case "status", "s":
		printView(out, p.View())
		return nil
	case "help", "h", "?":
		fmt.Fprintln(out, replHelp)
		return nil
	case "q", "quit", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

func printView(out io.Writer, v player.View) {
	state := "paused"
	if v.Playing {
		state = "playing"
	}
	fmt.Fprintf(out, "[%d/%d] %s  %s / %s  %s  %s  vol %s  %s\n",
		v.Index+1, v.Count, v.Title, v.CurrentTime, v.TotalTime, state, v.Speed, v.Volume, v.Mode)
	if v.Notice != "" {
		fmt.Fprintln(out, "»", v.Notice)
	}
}
