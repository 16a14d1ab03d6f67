package player

// State is the screen's immutable state snapshot. Handlers derive a new
// value and replace the old one wholesale; nothing mutates a State in
// place. Paths is shared between snapshots and never written.
type State struct {
	Paths             []string
	Index             int
	AutoLoadSubtitles bool
	SubtitlesVisible  bool
	Speed             float64
	ControlsVisible   bool
	VolumeVisible     bool
	FillScreen        bool
	Zoom              float64
	Mode              Mode
	SeekDragging      bool
}

func initialState(paths []string, index int, autoLoad bool) State {
	return State{
		Paths:             paths,
		Index:             ClampIndex(index, len(paths)),
		AutoLoadSubtitles: autoLoad,
		SubtitlesVisible:  true,
		Speed:             1.0,
		ControlsVisible:   true,
		Zoom:              MinZoom,
	}
}

// Empty reports whether there is nothing to play.
func (s State) Empty() bool { return len(s.Paths) == 0 }

// WithIndex returns s positioned on item i, ignoring invalid indices.
func (s State) WithIndex(i int) State {
	if i < 0 || i >= len(s.Paths) {
		return s
	}
	s.Index = i
	return s
}

// ToggleControls flips overlay visibility. Hiding the overlay also hides
// the volume slider.
func (s State) ToggleControls() State {
	s.ControlsVisible = !s.ControlsVisible
	if !s.ControlsVisible {
		s.VolumeVisible = false
	}
	return s
}

// Current returns the path of the current item, or "" when empty.
func (s State) Current() string {
	if s.Index < 0 || s.Index >= len(s.Paths) {
		return ""
	}
	return s.Paths[s.Index]
}

// View is what a front end renders. It is a value copy safe to read from
// any goroutine.
type View struct {
	Title            string  `json:"title"`
	Index            int     `json:"index"`
	Count            int     `json:"count"`
	CurrentTime      string  `json:"current_time"`
	TotalTime        string  `json:"total_time"`
	PositionMs       int64   `json:"position_ms"`
	DurationMs       int64   `json:"duration_ms"`
	Progress         int     `json:"progress"`
	Playing          bool    `json:"playing"`
	Speed            string  `json:"speed"`
	Volume           string  `json:"volume"`
	VolumeLevel      int     `json:"volume_level"`
	VolumeMax        int     `json:"volume_max"`
	ControlsVisible  bool    `json:"controls_visible"`
	VolumeVisible    bool    `json:"volume_visible"`
	SubtitlesVisible bool    `json:"subtitles_visible"`
	AutoLoadSubs     bool    `json:"auto_load_subtitles"`
	FillScreen       bool    `json:"fill_screen"`
	Zoom             float64 `json:"zoom"`
	Mode             string  `json:"mode"`
	SurfaceVisible   bool    `json:"surface_visible"`
	Notice           string  `json:"notice,omitempty"`
}
