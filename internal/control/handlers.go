package control

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vidgallery/internal/cast"
	"vidgallery/internal/gallery"
	"vidgallery/internal/library"
	"vidgallery/internal/player"
)

type videosResponse struct {
	Query  string   `json:"query"`
	Count  string   `json:"count"`
	Videos []string `json:"videos"`
}

type tracksResponse struct {
	Labels   []string `json:"labels"`
	Selected int      `json:"selected"`
	Notice   string   `json:"notice,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	h := s.opts.Health()
	status := http.StatusOK
	if !h.OK() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if s.opts.Videos == nil {
		writeError(w, http.StatusServiceUnavailable, "no_library", "library not configured")
		return
	}
	all, err := s.opts.Videos(r.Context())
	if err != nil {
		if errors.Is(err, library.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "permission_denied", err.Error())
			return
		}
		s.log.Error().Err(err).Msg("list videos")
		writeError(w, http.StatusInternalServerError, "library_error", err.Error())
		return
	}
	q := r.URL.Query().Get("q")
	visible := gallery.Filter(all, q)
	if visible == nil {
		visible = []string{}
	}
	writeJSON(w, http.StatusOK, videosResponse{Query: q, Count: gallery.CountLabel(len(visible)), Videos: visible})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Player.View())
}

func (s *Server) commands() map[string]func() error {
	p := s.opts.Player
	return map[string]func() error{
		"play-pause":     p.TogglePlayPause,
		"forward":        p.SkipForward,
		"back":           p.SkipBack,
		"next":           p.Next,
		"previous":       p.Previous,
		"speed":          p.CycleSpeed,
		"subtitles":      p.ToggleSubtitles,
		"auto-subtitles": p.ToggleAutoLoadSubtitles,
		"aspect":         p.ToggleAspect,
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	fn, ok := s.commands()[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_command", name)
		return
	}
	s.respond(w, fn())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	progress, ok := intParam(w, r.URL.Query().Get("progress"), 0, player.ProgressMax)
	if !ok {
		return
	}
	s.respond(w, s.opts.Player.EndSeekDrag(progress))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	level, ok := intParam(w, r.URL.Query().Get("level"), 0, 1<<16)
	if !ok {
		return
	}
	s.respond(w, s.opts.Player.SetVolume(level))
}

func (s *Server) handleAudioTracks(w http.ResponseWriter, r *http.Request) {
	menu, err := s.opts.Player.AudioTracks()
	if err != nil {
		s.respond(w, err)
		return
	}
	resp := tracksResponse{Labels: menu.Labels, Selected: menu.Selected}
	if len(menu.Labels) == 0 {
		resp.Labels = []string{}
		resp.Notice = s.opts.Player.View().Notice
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectAudio(w http.ResponseWriter, r *http.Request) {
	i, ok := intParam(w, chi.URLParam(r, "index"), 0, 1<<10)
	if !ok {
		return
	}
	s.respond(w, s.opts.Player.SelectAudioTrack(i))
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.opts.Player.CastAvailable())
}

func (s *Server) handleCastEnd(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.opts.Player.CastEnded())
}

// respond writes the view after a command, or maps its error.
func (s *Server) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.opts.Player.View())
	case errors.Is(err, player.ErrReleased):
		writeError(w, http.StatusConflict, "player_closed", err.Error())
	case errors.Is(err, cast.ErrUnavailable), errors.Is(err, cast.ErrUnsupported):
		writeError(w, http.StatusServiceUnavailable, "cast_unavailable", err.Error())
	default:
		s.log.Warn().Err(err).Msg("player command failed")
		writeError(w, http.StatusUnprocessableEntity, "command_failed", err.Error())
	}
}

func intParam(w http.ResponseWriter, raw string, lo, hi int) (int, bool) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		writeError(w, http.StatusBadRequest, "bad_parameter", "expected an integer in ["+strconv.Itoa(lo)+", "+strconv.Itoa(hi)+"]")
		return 0, false
	}
	return v, true
}
