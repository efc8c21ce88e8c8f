// Package player implements the playback state machine for the browser
// video surface. The surface reports time advancement ticks over the API and
// receives directives telling it whether to seek, pause, or keep playing.
package player

import (
	"log/slog"
	"sync"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

type Mode string

const (
	ModeFull   Mode = "FULL"
	ModeSingle Mode = "SINGLE"
	ModeReel   Mode = "REEL"
)

// endSnapTolerance is how close to the source duration the cursor may be
// before end-of-edit handling stops intervening.
const endSnapTolerance = 0.5

// PulseDuration is the length of the cosmetic transition flash layered over
// the surface on a segment or reel boundary. It never delays the seek.
const PulseDuration = 0.5

type Action string

const (
	ActionNone  Action = "none"
	ActionSeek  Action = "seek"
	ActionPause Action = "pause"
)

// Tick is the surface's periodic time report.
type Tick struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Paused      bool    `json:"paused"`
}

// Directive is the controller's answer to a tick: where the cursor should go
// and whether playback continues.
type Directive struct {
	Action Action  `json:"action"`
	SeekTo float64 `json:"seek_to,omitempty"`
	Play   bool    `json:"play,omitempty"`
	Pulse  bool    `json:"pulse,omitempty"`
	// Mode reflects the controller mode after the tick; REEL exhaustion
	// drops back to FULL.
	Mode Mode `json:"mode"`
}

// State is the single tagged record of what currently governs the cursor.
// Exactly one temporal authority is active at a time: the virtual edit (FULL),
// a looping clip (SINGLE), or the reel cursor (REEL).
type State struct {
	Mode       Mode       `json:"mode"`
	SingleClip *clip.Clip `json:"single_clip,omitempty"`
	ReelIndex  int        `json:"reel_index"`
}

type Controller struct {
	mu     sync.Mutex
	state  State
	logger *slog.Logger
}

func NewController(logger *slog.Logger) *Controller {
	return &Controller{
		state:  State{Mode: ModeFull},
		logger: logger,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnterFull returns to passthrough playback without touching the cursor.
func (c *Controller) EnterFull() Directive {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Mode: ModeFull}
	return Directive{Action: ActionNone, Mode: ModeFull}
}

// EnterSingle starts looping one clip: seek to its start and play. The
// caller clears the virtual edit so the two skip behaviors never compete.
func (c *Controller) EnterSingle(target clip.Clip) Directive {
	c.mu.Lock()
	defer c.mu.Unlock()

	target = clip.Sanitize(target, clip.DefaultClipDuration)
	c.state = State{Mode: ModeSingle, SingleClip: &target}

	if c.logger != nil {
		c.logger.Debug("entering single-clip loop", "clip_id", target.ID, "start", target.StartTime)
	}
	return Directive{Action: ActionSeek, SeekTo: target.StartTime, Play: true, Mode: ModeSingle}
}

// EnterReel starts sequential reel playback from the given index, resetting
// to 0 when the index is out of range. Returns ok=false for an empty reel.
func (c *Controller) EnterReel(reel *clip.Reel, index int) (Directive, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reel == nil || reel.Len() == 0 {
		return Directive{Action: ActionNone, Mode: c.state.Mode}, false
	}
	if index < 0 || index >= reel.Len() {
		index = 0
	}
	c.state = State{Mode: ModeReel, ReelIndex: index}

	entry, _ := reel.At(index)
	if c.logger != nil {
		c.logger.Debug("entering reel playback", "index", index, "entries", reel.Len())
	}
	return Directive{Action: ActionSeek, SeekTo: entry.StartTime, Play: true, Mode: ModeReel}, true
}

// Tick evaluates one time-advanced signal against the active mode and
// decides whether the current position is still valid.
func (c *Controller) Tick(t Tick, virtual clip.VirtualEdit, reel *clip.Reel) Directive {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := clip.ClampTime(t.CurrentTime)
	duration := clip.ClampTime(t.Duration)

	switch c.state.Mode {
	case ModeSingle:
		return c.tickSingle(now)
	case ModeReel:
		return c.tickReel(now, reel)
	default:
		return c.tickFull(now, duration, virtual)
	}
}

func (c *Controller) tickFull(now, duration float64, virtual clip.VirtualEdit) Directive {
	if !virtual.Active || len(virtual.KeepSegments) == 0 {
		return Directive{Action: ActionNone, Mode: ModeFull}
	}

	if _, inside := virtual.SegmentAt(now); inside {
		return Directive{Action: ActionNone, Mode: ModeFull}
	}

	if next, ok := virtual.NextSegment(now); ok {
		return Directive{
			Action: ActionSeek,
			SeekTo: next.Start,
			Play:   true,
			Pulse:  virtual.Transition != "" && virtual.Transition != clip.TransitionNone,
			Mode:   ModeFull,
		}
	}

	// Past the last keep segment: end-of-edit behaves as end-of-video.
	if duration > 0 && now < duration-endSnapTolerance {
		return Directive{Action: ActionPause, SeekTo: duration, Mode: ModeFull}
	}
	return Directive{Action: ActionNone, Mode: ModeFull}
}

func (c *Controller) tickSingle(now float64) Directive {
	target := c.state.SingleClip
	if target == nil {
		c.state = State{Mode: ModeFull}
		return Directive{Action: ActionNone, Mode: ModeFull}
	}

	if now >= clip.EffectiveEnd(*target, clip.DefaultClipDuration) {
		return Directive{Action: ActionSeek, SeekTo: target.StartTime, Play: true, Mode: ModeSingle}
	}
	return Directive{Action: ActionNone, Mode: ModeSingle}
}

func (c *Controller) tickReel(now float64, reel *clip.Reel) Directive {
	current, ok := reel.At(c.state.ReelIndex)
	if !ok {
		c.state = State{Mode: ModeFull}
		return Directive{Action: ActionPause, Mode: ModeFull}
	}

	if now < clip.EffectiveEnd(current, clip.DefaultReelDuration) {
		return Directive{Action: ActionNone, Mode: ModeReel}
	}

	next, ok := reel.At(c.state.ReelIndex + 1)
	if !ok {
		c.state = State{Mode: ModeFull}
		if c.logger != nil {
			c.logger.Debug("reel exhausted, returning to full playback")
		}
		return Directive{Action: ActionPause, Mode: ModeFull}
	}

	c.state.ReelIndex++
	return Directive{Action: ActionSeek, SeekTo: next.StartTime, Play: true, Pulse: true, Mode: ModeReel}
}
