package resolver

import (
	"fmt"
	"log/slog"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/player"
	"github.com/clipforge/clipforge-agent/internal/session"
)

// Outcome reports what a resolved intent did: the message to surface to the
// user and, when the intent moved playback, the directive for the surface.
type Outcome struct {
	Intent    oracle.Intent     `json:"intent"`
	Message   string            `json:"message"`
	Directive *player.Directive `json:"directive,omitempty"`
	ClipID    string            `json:"clip_id,omitempty"`
}

// Resolver is a pure dispatcher: no network and no rendering, only
// data-model mutations on the session.
type Resolver struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Apply executes one decoded copilot response against the session. Unknown
// intents and malformed payloads are no-ops that still surface the oracle's
// message; they never error.
func (r *Resolver) Apply(sess *session.Session, resp *oracle.CopilotResponse) Outcome {
	out := Outcome{Intent: resp.Intent, Message: resp.Message}

	switch resp.Intent {
	case oracle.IntentSearch:
		if len(resp.Data) == 0 {
			return out
		}
		return r.applySearch(sess, resp, out)

	case oracle.IntentEdit:
		if len(resp.Data) == 0 {
			return out
		}
		return r.applyEdit(sess, resp, out)

	case oracle.IntentClipEdit:
		if len(resp.Data) == 0 {
			return out
		}
		return r.applyClipEdit(sess, resp, out)

	case oracle.IntentReelAdd:
		if len(resp.Data) == 0 {
			return out
		}
		return r.applyReelAdd(sess, resp, out)

	case oracle.IntentReelRemove:
		payload := DecodeReelRemove(resp.Data)
		if sess.RemoveReel(payload.Index) {
			r.logger.Info("reel entry removed", "index", payload.Index, "remaining", sess.ReelLen())
		}
		return out

	case oracle.IntentReelClear:
		sess.ClearReel()
		r.logger.Info("reel cleared")
		return out

	default:
		r.logger.Debug("intent not actionable", "intent", resp.Intent)
		return out
	}
}

func (r *Resolver) applySearch(sess *session.Session, resp *oracle.CopilotResponse, out Outcome) Outcome {
	payload := DecodeSearch(resp.Data)
	if !payload.Found {
		// Topic located in content but not on the timeline: informational
		// only, the sentinel clip must never enter the library.
		r.logger.Info("search result not localizable, surfacing message only")
		return out
	}

	c := clip.Sanitize(payload.Clip, clip.DefaultClipDuration)
	sess.PrependClip(c)
	out.ClipID = c.ID

	if d, ok := sess.PlaySingle(c.ID); ok {
		out.Directive = &d
	}
	r.logger.Info("search clip added", "clip_id", c.ID, "start", c.StartTime, "end", c.EndTime)
	return out
}

func (r *Resolver) applyEdit(sess *session.Session, resp *oracle.CopilotResponse, out Outcome) Outcome {
	payload := DecodeEdit(resp.Data)

	applied := sess.SetVirtualEdit(clip.VirtualEdit{
		Description:  payload.Description,
		KeepSegments: payload.KeepSegments,
		FilterStyle:  payload.FilterStyle,
		Transition:   payload.Transition,
	})

	// The virtual edit governs FULL playback; leave SINGLE/REEL so the two
	// skip behaviors never compete.
	d := sess.PlayFull()
	out.Directive = &d

	r.logger.Info("virtual edit replaced",
		"segments", len(applied.KeepSegments),
		"filter", applied.FilterStyle,
		"transition", string(applied.Transition),
	)
	return out
}

func (r *Resolver) applyClipEdit(sess *session.Session, resp *oracle.CopilotResponse, out Outcome) Outcome {
	clipID := sess.ActiveClipID()
	if clipID == "" {
		out.Message = "Select a clip first, then ask me to edit it."
		return out
	}
	target, ok := sess.Clip(clipID)
	if !ok {
		out.Message = "The selected clip is no longer in the library."
		return out
	}

	payload := DecodeClipEdit(resp.Data)
	out.ClipID = clipID

	// Staleness is judged against the revision before this intent's own
	// merge bumps it. A quoted revision older than the clip's current edit
	// means the trim was aimed at a range someone else already changed.
	staleTrim := false
	if payload.Revision > 0 {
		if cur, ok := sess.EditFor(clipID); ok && payload.Revision < cur.Revision {
			staleTrim = true
		}
	}

	if payload.FilterStyle != "" || payload.Subtitles != "" || payload.Overlay != nil {
		merged := sess.MergeEdit(clip.ClipEdit{
			ClipID:      clipID,
			FilterStyle: payload.FilterStyle,
			Subtitles:   payload.Subtitles,
			Overlay:     payload.Overlay,
		})
		r.logger.Info("clip edit merged", "clip_id", clipID, "revision", merged.Revision)
	}

	if payload.StartTime != nil || payload.EndTime != nil {
		if staleTrim {
			r.logger.Warn("stale trim dropped",
				"clip_id", clipID,
				"quoted_revision", payload.Revision,
			)
			return out
		}
		if payload.StartTime != nil {
			target.StartTime = *payload.StartTime
		}
		if payload.EndTime != nil {
			target.EndTime = *payload.EndTime
		}
		target = clip.Sanitize(target, clip.DefaultClipDuration)
		sess.ReplaceClip(target)

		if d, ok := sess.PlaySingle(target.ID); ok {
			out.Directive = &d
		}
		r.logger.Info("clip trimmed", "clip_id", clipID, "start", target.StartTime, "end", target.EndTime)
	}
	return out
}

func (r *Resolver) applyReelAdd(sess *session.Session, resp *oracle.CopilotResponse, out Outcome) Outcome {
	payload := DecodeReelAdd(resp.Data)

	var added []clip.Clip
	switch {
	case payload.All:
		added = sess.Clips()
	default:
		for _, c := range payload.Clips {
			c = clip.Sanitize(c, clip.DefaultReelDuration)
			// New clips join the library too; exact-ID duplicates are
			// skipped there but still appended to the reel.
			sess.AppendClip(c)
			added = append(added, c)
		}
	}

	for _, c := range added {
		sess.AppendReel(c)
	}

	if len(added) > 0 {
		first := added[0]
		out.ClipID = first.ID
		d := player.Directive{
			Action: player.ActionSeek,
			SeekTo: first.StartTime,
			Play:   true,
			Mode:   sess.PlayerState().Mode,
		}
		out.Directive = &d
		if out.Message == "" {
			out.Message = fmt.Sprintf("Added %d clip(s) to the reel.", len(added))
		}
	}

	r.logger.Info("reel add applied", "added", len(added), "reel_len", sess.ReelLen())
	return out
}
