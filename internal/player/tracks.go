package player

import (
	"strconv"
	"strings"
)

const (
	NoticeNoAudioTracks  = "No audio tracks available"
	NoticeOneAudioTrack  = "Only one audio track available"
	noticeAudioPrefix    = "Audio: "
	noticeAudioSetFailed = "Failed to set audio track: "
)

// AudioChoice is one entry of the audio track menu.
type AudioChoice struct {
	Label string
	Group int
	Track int
}

// TrackMenu is the single-choice list offered when there is more than one
// audio track. Selected is -1 when no track is active.
type TrackMenu struct {
	Labels   []string
	Selected int
}

// AudioChoices flattens every audio track across groups in order,
// reporting which entry is currently selected.
func AudioChoices(groups []TrackGroup) (choices []AudioChoice, selected int) {
	selected = -1
	for gi, g := range groups {
		if g.Type != TrackAudio {
			continue
		}
		for ti, tr := range g.Tracks {
			n := len(choices) + 1
			choices = append(choices, AudioChoice{Label: TrackLabel(tr, n), Group: gi, Track: ti})
			if tr.Selected {
				selected = len(choices) - 1
			}
		}
	}
	return choices, selected
}

// TrackLabel renders one audio track: "EN - Commentary (AAC)", "EN (AAC)",
// "Commentary (AAC)" or "Audio Track n", with the codec suffix whenever
// the MIME type is known.
func TrackLabel(t Track, n int) string {
	var name string
	switch {
	case t.Language != "":
		name = strings.ToUpper(t.Language)
		if t.Label != "" {
			name += " - " + t.Label
		}
	case t.Label != "":
		name = t.Label
	default:
		name = "Audio Track " + strconv.Itoa(n)
	}
	if codec := codecName(t.MIMEType); codec != "" {
		name += " (" + codec + ")"
	}
	return name
}

// codecName is the uppercased MIME subtype ("audio/mp4a-latm" -> "MP4A-LATM").
func codecName(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok {
		return strings.ToUpper(sub)
	}
	return strings.ToUpper(mimeType)
}
