package resolver

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/player"
	"github.com/clipforge/clipforge-agent/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession() *session.Session {
	s := session.New("v1", player.NewController(nil))
	s.SetDuration(300)
	s.SetAnalysis("", []clip.Clip{
		{ID: "a", Title: "Opening", StartTime: 0, EndTime: 10},
		{ID: "b", Title: "Middle", StartTime: 60, EndTime: 75},
	})
	return s
}

func respond(intent oracle.Intent, data string) *oracle.CopilotResponse {
	var raw json.RawMessage
	if data != "" {
		raw = json.RawMessage(data)
	}
	return &oracle.CopilotResponse{Intent: intent, Message: "ok", Data: raw}
}

func TestApply_SearchAddsAndPlays(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	out := r.Apply(sess, respond(oracle.IntentSearch,
		`{"title":"Goal","description":"the goal","start_time":120,"end_time":130}`))

	clips := sess.Clips()
	if len(clips) != 3 {
		t.Fatalf("library size = %d, want 3", len(clips))
	}
	if clips[0].Title != "Goal" {
		t.Errorf("search result should be prepended, got %q first", clips[0].Title)
	}
	if out.Directive == nil || out.Directive.SeekTo != 120 || !out.Directive.Play {
		t.Errorf("directive = %+v, want seek to 120 and play", out.Directive)
	}
	if sess.PlayerState().Mode != player.ModeSingle {
		t.Errorf("mode = %q, want SINGLE", sess.PlayerState().Mode)
	}
}

func TestApply_SearchSentinelNeverEntersLibrary(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	out := r.Apply(sess, respond(oracle.IntentSearch,
		`{"title":"Topic","start_time":-1,"end_time":0}`))

	if len(sess.Clips()) != 2 {
		t.Fatalf("library size = %d, sentinel must not be added", len(sess.Clips()))
	}
	if out.Message != "ok" {
		t.Errorf("Message = %q, should surface the oracle message", out.Message)
	}
	if out.Directive != nil {
		t.Error("sentinel search should not move playback")
	}
}

func TestApply_ReelAddAllIsIdempotentForLibrary(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	r.Apply(sess, respond(oracle.IntentReelAdd, `{"all":true}`))
	r.Apply(sess, respond(oracle.IntentReelAdd, `{"all":true}`))

	if got := len(sess.Clips()); got != 2 {
		t.Errorf("library size = %d, want unchanged 2", got)
	}
	if got := sess.ReelLen(); got != 4 {
		t.Errorf("reel size = %d, want 4 (reel appends are not deduplicated)", got)
	}
}

func TestApply_ReelAddNewClipsJoinLibrary(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	out := r.Apply(sess, respond(oracle.IntentReelAdd,
		`{"clips":[{"id":"a","title":"Opening","start_time":0,"end_time":10},{"id":"z","title":"New","start_time":200,"end_time":210}]}`))

	if got := len(sess.Clips()); got != 3 {
		t.Errorf("library size = %d, want 3 (id a deduped, z added)", got)
	}
	if got := sess.ReelLen(); got != 2 {
		t.Errorf("reel size = %d, want 2", got)
	}
	if out.Directive == nil || out.Directive.SeekTo != 0 {
		t.Errorf("directive = %+v, want jump to first added clip", out.Directive)
	}
}

func TestApply_ReelAddAdHocRange(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	r.Apply(sess, respond(oracle.IntentReelAdd, `{"start_time":40,"end_time":44,"title":"Ad hoc"}`))

	if sess.ReelLen() != 1 {
		t.Fatalf("reel size = %d, want 1", sess.ReelLen())
	}
	entry := sess.ReelEntries()[0]
	if entry.StartTime != 40 || entry.EndTime != 44 {
		t.Errorf("entry range = %v-%v, want 40-44", entry.StartTime, entry.EndTime)
	}
}

func TestApply_ReelRemoveLast(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	r.Apply(sess, respond(oracle.IntentReelAdd, `{"all":true}`))
	r.Apply(sess, respond(oracle.IntentReelAdd, `{"start_time":100,"end_time":104}`))

	r.Apply(sess, respond(oracle.IntentReelRemove, `{"index":-1}`))

	entries := sess.ReelEntries()
	if len(entries) != 2 {
		t.Fatalf("reel size = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.StartTime == 100 {
			t.Error("remove -1 should have dropped the last appended entry")
		}
	}
}

func TestApply_ReelRemoveOutOfRangeIsNoOp(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	r.Apply(sess, respond(oracle.IntentReelAdd, `{"all":true}`))

	out := r.Apply(sess, respond(oracle.IntentReelRemove, `{"index":9}`))
	if sess.ReelLen() != 2 {
		t.Errorf("reel size = %d, want unchanged 2", sess.ReelLen())
	}
	if out.Message != "ok" {
		t.Errorf("out-of-range removal should still surface the message")
	}
}

func TestApply_ReelClearExitsReelMode(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	r.Apply(sess, respond(oracle.IntentReelAdd, `{"all":true}`))
	sess.PlayReel()

	r.Apply(sess, respond(oracle.IntentReelClear, `{}`))

	if sess.ReelLen() != 0 {
		t.Errorf("reel size = %d, want 0", sess.ReelLen())
	}
	if sess.PlayerState().Mode != player.ModeFull {
		t.Errorf("mode = %q, want FULL", sess.PlayerState().Mode)
	}
}

func TestApply_EditReplacesVirtualEditWholesale(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	r.Apply(sess, respond(oracle.IntentEdit,
		`{"description":"first cut","keep_segments":[{"start":0,"end":30}],"filter_style":"sepia"}`))
	r.Apply(sess, respond(oracle.IntentEdit,
		`{"description":"second cut","keep_segments":[{"start":50,"end":90}]}`))

	v := sess.VirtualEdit()
	if !v.Active {
		t.Fatal("virtual edit should be active")
	}
	if v.FilterStyle != "" {
		t.Errorf("FilterStyle = %q, replacement is wholesale, not merged", v.FilterStyle)
	}
	if len(v.KeepSegments) != 1 || v.KeepSegments[0].Start != 50 {
		t.Errorf("KeepSegments = %+v", v.KeepSegments)
	}
}

func TestApply_EditWithoutSegmentsActivatesWholeVideo(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	r.Apply(sess, respond(oracle.IntentEdit, `{"filter_style":"grayscale"}`))

	v := sess.VirtualEdit()
	if !v.Active {
		t.Fatal("pure-filter edit should still activate")
	}
	if len(v.KeepSegments) != 1 || v.KeepSegments[0].End != 300 {
		t.Errorf("KeepSegments = %+v, want whole duration", v.KeepSegments)
	}
}

func TestApply_ClipEditMergesAndTrims(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	sess.PlaySingle("b")

	r.Apply(sess, respond(oracle.IntentClipEdit, `{"subtitles":"hello there"}`))
	out := r.Apply(sess, respond(oracle.IntentClipEdit,
		`{"filter_style":"invert","start_time":62,"end_time":70}`))

	edit, ok := sess.EditFor("b")
	if !ok {
		t.Fatal("clip b should have an edit")
	}
	if edit.Subtitles != "hello there" {
		t.Errorf("Subtitles = %q, want preserved across merges", edit.Subtitles)
	}
	if edit.FilterStyle != "invert" {
		t.Errorf("FilterStyle = %q", edit.FilterStyle)
	}

	c, _ := sess.Clip("b")
	if c.StartTime != 62 || c.EndTime != 70 {
		t.Errorf("clip range = %v-%v, want trimmed to 62-70", c.StartTime, c.EndTime)
	}
	if out.Directive == nil || out.Directive.SeekTo != 62 {
		t.Errorf("directive = %+v, want seek to new start", out.Directive)
	}
}

func TestApply_ClipEditStaleRevisionDropsTrim(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	sess.PlaySingle("b")

	// Two merges move the edit to revision 2.
	r.Apply(sess, respond(oracle.IntentClipEdit, `{"subtitles":"take one"}`))
	r.Apply(sess, respond(oracle.IntentClipEdit, `{"filter_style":"sepia"}`))

	out := r.Apply(sess, respond(oracle.IntentClipEdit,
		`{"revision":1,"start_time":62,"end_time":70}`))

	c, _ := sess.Clip("b")
	if c.StartTime != 60 || c.EndTime != 75 {
		t.Errorf("clip range = %v-%v, stale trim must not apply", c.StartTime, c.EndTime)
	}
	if out.Directive != nil {
		t.Error("dropped trim must not move playback")
	}
}

func TestApply_ClipEditCurrentRevisionTrims(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())
	sess.PlaySingle("b")

	r.Apply(sess, respond(oracle.IntentClipEdit, `{"subtitles":"take one"}`))

	r.Apply(sess, respond(oracle.IntentClipEdit,
		`{"revision":1,"start_time":62,"end_time":70}`))

	c, _ := sess.Clip("b")
	if c.StartTime != 62 || c.EndTime != 70 {
		t.Errorf("clip range = %v-%v, current-revision trim must apply", c.StartTime, c.EndTime)
	}
}

func TestApply_ClipEditWithoutActiveClip(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	out := r.Apply(sess, respond(oracle.IntentClipEdit, `{"subtitles":"x"}`))
	if len(sess.Edits()) != 0 {
		t.Error("no edit should be recorded without an active clip")
	}
	if out.Message == "ok" {
		t.Error("message should explain that a clip must be selected")
	}
}

func TestApply_UnknownAndMalformedAreNoOps(t *testing.T) {
	sess := newTestSession()
	r := New(testLogger())

	before := len(sess.Clips())

	out := r.Apply(sess, &oracle.CopilotResponse{Intent: oracle.IntentUnknown, Message: "no idea"})
	if out.Message != "no idea" {
		t.Errorf("Message = %q, want surfaced", out.Message)
	}

	r.Apply(sess, &oracle.CopilotResponse{Intent: oracle.IntentSearch, Message: "m"})
	r.Apply(sess, &oracle.CopilotResponse{Intent: oracle.IntentEdit, Message: "m"})

	if len(sess.Clips()) != before {
		t.Error("malformed payloads must not mutate the library")
	}
	if sess.VirtualEdit().Active {
		t.Error("malformed EDIT must not activate a virtual edit")
	}
}
