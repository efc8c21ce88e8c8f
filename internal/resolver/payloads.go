// Package resolver translates decoded copilot intents into data-model
// mutations. Payloads from the intent oracle are loosely typed; this is the
// boundary where they are decoded into closed variants and sanitized so
// unchecked fields never leak into the data model.
package resolver

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

// SearchPayload is a clip-shaped object. Found is false when the oracle used
// the start_time -1 sentinel: topic identified but not localizable.
type SearchPayload struct {
	Clip  clip.Clip
	Found bool
}

type EditPayload struct {
	Description  string
	KeepSegments []clip.TimeRange
	FilterStyle  string
	Transition   clip.TransitionEffect
}

// ClipEditPayload carries only the fields the user asked to change. Nil
// timestamps mean "leave the clip's range alone". Revision is the edit
// revision the caller last saw; 0 means the caller did not quote one.
type ClipEditPayload struct {
	FilterStyle string
	Subtitles   string
	Overlay     *clip.Overlay
	StartTime   *float64
	EndTime     *float64
	Revision    int
}

// ReelAddPayload supports three shapes: the whole library, an explicit clip
// list, or a single ad-hoc range.
type ReelAddPayload struct {
	All   bool
	Clips []clip.Clip
}

type ReelRemovePayload struct {
	Index int
}

func decodeClip(v gjson.Result) clip.Clip {
	var tags []string
	v.Get("tags").ForEach(func(_, t gjson.Result) bool {
		if s := t.String(); s != "" {
			tags = append(tags, s)
		}
		return true
	})
	return clip.Clip{
		ID:          v.Get("id").String(),
		Title:       v.Get("title").String(),
		Description: v.Get("description").String(),
		StartTime:   floatOr(v.Get("start_time"), v.Get("startTime")),
		EndTime:     floatOr(v.Get("end_time"), v.Get("endTime")),
		Category:    v.Get("category").String(),
		Tags:        tags,
	}
}

// floatOr reads whichever key variant the oracle produced, tolerating both
// snake_case and camelCase. Missing values come back NaN so sanitization
// can tell "absent" from zero.
func floatOr(results ...gjson.Result) float64 {
	for _, r := range results {
		if r.Exists() {
			return r.Float()
		}
	}
	return math.NaN()
}

func DecodeSearch(data []byte) SearchPayload {
	v := gjson.ParseBytes(data)
	c := decodeClip(v)
	found := c.StartTime != clip.SentinelStart
	return SearchPayload{Clip: c, Found: found}
}

func DecodeEdit(data []byte) EditPayload {
	v := gjson.ParseBytes(data)

	var segments []clip.TimeRange
	v.Get("keep_segments").ForEach(func(_, seg gjson.Result) bool {
		segments = append(segments, clip.TimeRange{
			Start: floatOr(seg.Get("start"), seg.Get("startTime")),
			End:   floatOr(seg.Get("end"), seg.Get("endTime")),
		})
		return true
	})

	transition := clip.TransitionEffect(v.Get("transition").String())
	switch transition {
	case clip.TransitionFlash, clip.TransitionFade:
	default:
		transition = clip.TransitionNone
	}

	return EditPayload{
		Description:  v.Get("description").String(),
		KeepSegments: segments,
		FilterStyle:  v.Get("filter_style").String(),
		Transition:   transition,
	}
}

func DecodeClipEdit(data []byte) ClipEditPayload {
	v := gjson.ParseBytes(data)

	p := ClipEditPayload{
		FilterStyle: v.Get("filter_style").String(),
		Subtitles:   v.Get("subtitles").String(),
		Revision:    int(v.Get("revision").Int()),
	}

	if ov := v.Get("overlay"); ov.IsObject() {
		typ := clip.OverlayType(ov.Get("type").String())
		switch typ {
		case clip.OverlayText, clip.OverlayEmoji, clip.OverlayImage:
			p.Overlay = &clip.Overlay{
				Type:     typ,
				Content:  ov.Get("content").String(),
				Position: ov.Get("position").String(),
			}
		}
	}

	if st := v.Get("start_time"); st.Exists() {
		f := st.Float()
		p.StartTime = &f
	}
	if et := v.Get("end_time"); et.Exists() {
		f := et.Float()
		p.EndTime = &f
	}
	return p
}

func DecodeReelAdd(data []byte) ReelAddPayload {
	v := gjson.ParseBytes(data)

	if v.Get("all").Bool() {
		return ReelAddPayload{All: true}
	}

	if list := v.Get("clips"); list.IsArray() {
		var clips []clip.Clip
		list.ForEach(func(_, c gjson.Result) bool {
			clips = append(clips, decodeClip(c))
			return true
		})
		return ReelAddPayload{Clips: clips}
	}

	// Single ad-hoc clip shape.
	return ReelAddPayload{Clips: []clip.Clip{decodeClip(v)}}
}

func DecodeReelRemove(data []byte) ReelRemovePayload {
	v := gjson.ParseBytes(data)
	idx := v.Get("index")
	if !idx.Exists() {
		return ReelRemovePayload{Index: clip.RemoveLast}
	}
	return ReelRemovePayload{Index: int(idx.Int())}
}
