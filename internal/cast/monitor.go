package cast

import (
	"time"

	"vidgallery/internal/player"
)

// monitor polls the receiver. It advances the playlist when an item
// finishes, reports an item that stops early as an error, and ends the
// session after lostAfter consecutive failed polls.
func (t *Transport) monitor() {
	defer t.wg.Done()
	tick := time.NewTicker(t.opts.PollEvery)
	defer tick.Stop()

	var (
		prevPlaying bool
		seenPlaying bool
		lastIndex   = -1
	)
	for {
		select {
		case <-t.stop:
			return
		case <-tick.C:
		}

		t.mu.Lock()
		if t.released {
			t.mu.Unlock()
			return
		}
		if t.client == nil || t.staged {
			t.mu.Unlock()
			continue
		}
		st, err := t.client.GetStatus()
		if err != nil || st == nil {
			t.failures++
			if t.failures < lostAfter {
				t.mu.Unlock()
				continue
			}
			t.endSessionLocked(err)
			t.mu.Unlock()
			return
		}
		t.failures = 0
		// Receivers report position 0 once idle; judge the end by the
		// last position seen before that.
		lastPos := t.currentMs
		t.applyStatus(st.PlayerState, st.CurrentTime)

		if t.index != lastIndex {
			lastIndex = t.index
			seenPlaying = false
		}
		playing := t.state == statePlaying || t.state == stateBuffering
		if t.state == statePlaying {
			seenPlaying = true
		}

		var events []func(player.Listener)
		if t.state == stateIdle && seenPlaying {
			seenPlaying = false
			dur := t.durations[t.index]
			finished := dur <= 0 || lastPos >= dur-endSlack.Milliseconds()
			if finished && t.index+1 < len(t.items) {
				next := t.index + 1
				if err := t.loadItem(next, 0); err != nil {
					t.log.Warn().Err(err).Int("index", next).Msg("advance playlist")
					events = append(events, errorEvent(&player.PlaybackError{Code: player.ErrCodeSource, Message: err.Error(), Err: err}))
				} else {
					lastIndex = next
					events = append(events, func(l player.Listener) {
						if l.OnItemTransition != nil {
							l.OnItemTransition(next)
						}
					})
				}
			} else if !finished {
				t.log.Warn().Int64("position_ms", lastPos).Int64("duration_ms", dur).Msg("receiver went idle before the end")
				events = append(events, errorEvent(&player.PlaybackError{Code: player.ErrCodeSource, Message: "Cast device stopped playback"}))
			}
			playing = t.state == statePlaying || t.state == stateBuffering
		}
		if playing != prevPlaying {
			prevPlaying = playing
			p := playing
			events = append(events, func(l player.Listener) {
				if l.OnIsPlayingChanged != nil {
					l.OnIsPlayingChanged(p)
				}
			})
		}
		l := t.listener
		t.mu.Unlock()

		for _, ev := range events {
			ev(l)
		}
	}
}

func errorEvent(pe *player.PlaybackError) func(player.Listener) {
	return func(l player.Listener) {
		if l.OnError != nil {
			l.OnError(pe)
		}
	}
}

// endSessionLocked drops the client and reports the session end once.
// The current item is staged again, keeping its play state, so a later
// Play reconnects where it stopped. Callers hold t.mu; the callback runs on its own goroutine.
func (t *Transport) endSessionLocked(cause error) {
	t.log.Warn().AnErr("cause", cause).Msg("cast session lost")
	if t.client != nil {
		_ = t.client.Close(false)
		t.client = nil
	}
	if t.server != nil {
		t.server.StopServer()
		t.server = nil
	}
	t.monitoring = false
	if len(t.items) > 0 && !t.staged {
		t.staged, t.stagedMs = true, t.currentMs
		t.resume = t.state == statePlaying || t.state == stateBuffering
	}
	t.state = ""
	if fn := t.opts.OnSessionEnded; fn != nil {
		go fn()
	}
}
