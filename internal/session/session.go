// Package session holds the per-video editing state: the clip library, the
// reel, the virtual edit, per-clip edits, and the playback controller. All
// of it is session-scoped and recomputed from source + edit descriptors on
// export; nothing here persists.
package session

import (
	"sync"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/player"
)

type Session struct {
	VideoID string

	mu           sync.Mutex
	library      clip.Library
	reel         clip.Reel
	virtual      clip.VirtualEdit
	edits        map[string]*clip.ClipEdit
	controller   *player.Controller
	duration     float64
	summary      string
	transcript   []oracle.TranscriptSegment
	activeClipID string
}

func New(videoID string, controller *player.Controller) *Session {
	return &Session{
		VideoID:    videoID,
		edits:      make(map[string]*clip.ClipEdit),
		controller: controller,
	}
}

// --- analysis ingestion ---

// SetAnalysis installs the oracle's clip-detection result. Clips are
// sanitized and near-duplicates merged before they reach the library.
func (s *Session) SetAnalysis(summary string, clips []clip.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sanitized := make([]clip.Clip, 0, len(clips))
	for _, c := range clips {
		if c.StartTime == clip.SentinelStart {
			continue
		}
		sanitized = append(sanitized, clip.Sanitize(c, clip.DefaultClipDuration))
	}
	s.library.SetAll(sanitized)
	s.summary = summary
}

// SetTranscript installs the transcript pass; either pass may arrive first.
func (s *Session) SetTranscript(segments []oracle.TranscriptSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = segments
}

func (s *Session) SetDuration(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = clip.ClampTime(d)
}

func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) Transcript() []oracle.TranscriptSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]oracle.TranscriptSegment, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// --- library ---

func (s *Session) Clips() []clip.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.List()
}

func (s *Session) Clip(id string) (clip.Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Get(id)
}

func (s *Session) PrependClip(c clip.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.library.Prepend(c)
}

// AppendClip adds to the library unless the ID already exists.
func (s *Session) AppendClip(c clip.Clip) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Append(c)
}

func (s *Session) ReplaceClip(c clip.Clip) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Replace(c)
}

func (s *Session) ActiveClipID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeClipID
}

// --- per-clip edits ---

func (s *Session) EditFor(clipID string) (clip.ClipEdit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edits[clipID]
	if !ok {
		return clip.ClipEdit{}, false
	}
	return *e, true
}

// Edits returns a snapshot of all per-clip edits, keyed by clip ID.
func (s *Session) Edits() map[string]clip.ClipEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]clip.ClipEdit, len(s.edits))
	for id, e := range s.edits {
		out[id] = *e
	}
	return out
}

// MergeEdit folds a partial edit into the clip's existing edit and returns
// the merged record.
func (s *Session) MergeEdit(patch clip.ClipEdit) clip.ClipEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := clip.MergeClipEdit(s.edits[patch.ClipID], patch)
	s.edits[patch.ClipID] = &merged
	return merged
}

// --- virtual edit ---

func (s *Session) VirtualEdit() clip.VirtualEdit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.virtual
}

// SetVirtualEdit replaces the global edit wholesale. Empty keep segments
// default to the whole known duration so a pure-filter request still
// activates.
func (s *Session) SetVirtualEdit(v clip.VirtualEdit) clip.VirtualEdit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(v.KeepSegments) == 0 {
		end := s.duration
		if end <= 0 {
			end = clip.DefaultClipDuration
		}
		v.KeepSegments = []clip.TimeRange{{Start: 0, End: end}}
	}
	for i, seg := range v.KeepSegments {
		v.KeepSegments[i] = clip.SanitizeRange(seg, clip.DefaultClipDuration)
	}
	v.Active = true
	s.virtual = v
	return v
}

func (s *Session) ClearVirtualEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.virtual = clip.VirtualEdit{}
}

// --- reel ---

func (s *Session) ReelEntries() []clip.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reel.Entries()
}

func (s *Session) ReelLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reel.Len()
}

func (s *Session) AppendReel(c clip.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reel.Append(c)
}

func (s *Session) RemoveReel(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reel.RemoveIndex(index)
}

// ClearReel empties the reel; if reel playback was active the controller
// drops back to full-video mode.
func (s *Session) ClearReel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reel.Clear()
	if s.controller.State().Mode == player.ModeReel {
		s.controller.EnterFull()
	}
}

// --- playback ---

func (s *Session) PlayerState() player.State {
	return s.controller.State()
}

// PlaySingle loops one library clip. Entering single-clip view invalidates
// the virtual edit so only one authority moves the cursor.
func (s *Session) PlaySingle(clipID string) (player.Directive, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.library.Get(clipID)
	if !ok {
		return player.Directive{Action: player.ActionNone}, false
	}
	s.virtual = clip.VirtualEdit{}
	s.activeClipID = clipID
	return s.controller.EnterSingle(target), true
}

// PlayReel starts sequential playback of the reel from the top, clearing
// the virtual edit for the same reason as PlaySingle.
func (s *Session) PlayReel() (player.Directive, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.virtual = clip.VirtualEdit{}
	return s.controller.EnterReel(&s.reel, 0)
}

func (s *Session) PlayFull() player.Directive {
	return s.controller.EnterFull()
}

// Tick forwards a surface time report to the controller with the current
// edit state.
func (s *Session) Tick(t player.Tick) player.Directive {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Duration > s.duration {
		s.duration = clip.ClampTime(t.Duration)
	}
	return s.controller.Tick(t, s.virtual, &s.reel)
}
