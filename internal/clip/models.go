// Package clip defines the editing data model: clips, time ranges, the
// global virtual edit, per-clip visual edits, and the reel. All timestamps
// are seconds relative to the start of the source video.
package clip

import (
	"crypto/rand"
	"fmt"
)

// Fallback durations applied when a clip's end time is missing or does not
// extend past its start time.
const (
	DefaultClipDuration = 10.0
	DefaultReelDuration = 5.0
)

// DefaultCategory is assigned to clips ingested without one.
const DefaultCategory = "highlight"

type Clip struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
}

// Duration returns the clip length in seconds. It is only meaningful after
// sanitization.
func (c Clip) Duration() float64 {
	return c.EndTime - c.StartTime
}

// TimeRange is a half-open interval [Start, End) of source time. It serves
// both as a keep-segment of the virtual edit and as a compositor input.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r TimeRange) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

type TransitionEffect string

const (
	TransitionNone  TransitionEffect = "none"
	TransitionFlash TransitionEffect = "flash"
	TransitionFade  TransitionEffect = "fade"
)

// VirtualEdit is the whole-video non-destructive edit. When active, the keep
// segments are the only playable and exportable material; gaps between them
// are cut. A new EDIT intent replaces the previous instance wholesale.
type VirtualEdit struct {
	Active       bool             `json:"active"`
	Description  string           `json:"description,omitempty"`
	KeepSegments []TimeRange      `json:"keep_segments,omitempty"`
	FilterStyle  string           `json:"filter_style,omitempty"`
	Transition   TransitionEffect `json:"transition,omitempty"`
}

// SegmentAt returns the keep segment containing t, if any. Segments are
// normally sorted ascending by start but this is not enforced; the lookup
// terminates regardless of overlap or ordering.
func (v VirtualEdit) SegmentAt(t float64) (TimeRange, bool) {
	for _, seg := range v.KeepSegments {
		if seg.Contains(t) {
			return seg, true
		}
	}
	return TimeRange{}, false
}

// NextSegment returns the first keep segment starting strictly after t.
func (v VirtualEdit) NextSegment(t float64) (TimeRange, bool) {
	found := false
	var best TimeRange
	for _, seg := range v.KeepSegments {
		if seg.Start > t && (!found || seg.Start < best.Start) {
			best = seg
			found = true
		}
	}
	return best, found
}

type OverlayType string

const (
	OverlayText  OverlayType = "TEXT"
	OverlayEmoji OverlayType = "EMOJI"
	OverlayImage OverlayType = "IMAGE"
)

// Overlay is a sticker drawn over every frame of its clip during export:
// an emoji, a meme-text badge, or an image loaded from disk.
type Overlay struct {
	Type     OverlayType `json:"type"`
	Content  string      `json:"content"`
	Position string      `json:"position,omitempty"`
}

// ClipEdit is the per-clip visual augmentation, keyed by clip ID. Successive
// edit intents merge field-by-field: a field absent from the newest intent
// keeps its previous value. Revision increments on every applied edit so a
// stale concurrent trim can be detected and dropped.
type ClipEdit struct {
	ClipID      string   `json:"clip_id"`
	FilterStyle string   `json:"filter_style,omitempty"`
	Subtitles   string   `json:"subtitles,omitempty"`
	Overlay     *Overlay `json:"overlay,omitempty"`
	Revision    int      `json:"revision"`
}

// NewID returns a random identifier in the same hyphenated-hex form used for
// videos and jobs.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
