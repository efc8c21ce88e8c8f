package clip

import (
	"math"
	"strings"
)

// SentinelStart marks a SEARCH result whose topic was found but could not be
// localized to a timestamp. Such clips must never enter the library.
const SentinelStart = -1

// dedupeWindow is the start-time proximity within which two ingested clips
// are considered the same moment and merged.
const dedupeWindow = 1.0

// ClampTime coerces a timestamp to a usable non-negative value. NaN,
// infinities, and negatives all become zero.
func ClampTime(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0
	}
	return t
}

// EffectiveEnd returns the clip's end time, or start+fallback when the end
// does not extend past the start. Malformed values are clamped first.
func EffectiveEnd(c Clip, fallback float64) float64 {
	start := ClampTime(c.StartTime)
	end := ClampTime(c.EndTime)
	if end > start {
		return end
	}
	return start + fallback
}

// Sanitize normalizes a clip record from any source (oracle or intent
// payload) so downstream components never see malformed data. After
// sanitization EndTime > StartTime >= 0 always holds.
func Sanitize(c Clip, fallback float64) Clip {
	if fallback <= 0 {
		fallback = DefaultClipDuration
	}

	c.StartTime = ClampTime(c.StartTime)
	c.EndTime = ClampTime(c.EndTime)
	if c.EndTime <= c.StartTime {
		c.EndTime = c.StartTime + fallback
	}

	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		c.Title = "Untitled clip"
	}
	if strings.TrimSpace(c.Category) == "" {
		c.Category = DefaultCategory
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	return c
}

// SanitizeRange clamps a keep-segment or compositor input range. A range
// that collapses after clamping gets the fallback duration.
func SanitizeRange(r TimeRange, fallback float64) TimeRange {
	if fallback <= 0 {
		fallback = DefaultClipDuration
	}
	r.Start = ClampTime(r.Start)
	r.End = ClampTime(r.End)
	if r.End <= r.Start {
		r.End = r.Start + fallback
	}
	return r
}

// Dedupe merges near-duplicate clips whose start times fall within one
// second of an earlier clip, keeping the earlier entry. Order is preserved.
func Dedupe(clips []Clip) []Clip {
	out := make([]Clip, 0, len(clips))
	for _, c := range clips {
		dup := false
		for _, kept := range out {
			if math.Abs(kept.StartTime-c.StartTime) < dedupeWindow {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
