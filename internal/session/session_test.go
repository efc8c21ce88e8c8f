package session

import (
	"testing"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/player"
)

func newTestSession() *Session {
	s := New("v1", player.NewController(nil))
	s.SetDuration(120)
	s.SetAnalysis("summary", []clip.Clip{
		{ID: "a", Title: "a", StartTime: 0, EndTime: 5},
		{ID: "b", Title: "b", StartTime: 30, EndTime: 40},
	})
	return s
}

func TestPlaySingle_ClearsVirtualEdit(t *testing.T) {
	s := newTestSession()
	s.SetVirtualEdit(clip.VirtualEdit{KeepSegments: []clip.TimeRange{{Start: 0, End: 10}}})

	d, ok := s.PlaySingle("b")
	if !ok {
		t.Fatal("PlaySingle should find clip b")
	}
	if d.Action != player.ActionSeek || d.SeekTo != 30 {
		t.Fatalf("directive = %+v, want seek to 30", d)
	}
	if s.VirtualEdit().Active {
		t.Error("entering SINGLE must clear the virtual edit")
	}
	if s.ActiveClipID() != "b" {
		t.Errorf("ActiveClipID = %q, want b", s.ActiveClipID())
	}
}

func TestPlayReel_ClearsVirtualEditAndResetsCursor(t *testing.T) {
	s := newTestSession()
	s.AppendReel(clip.Clip{ID: "a", Title: "a", StartTime: 0, EndTime: 5})
	s.AppendReel(clip.Clip{ID: "b", Title: "b", StartTime: 30, EndTime: 40})
	s.SetVirtualEdit(clip.VirtualEdit{KeepSegments: []clip.TimeRange{{Start: 0, End: 10}}})

	d, ok := s.PlayReel()
	if !ok {
		t.Fatal("PlayReel should start with two entries")
	}
	if d.SeekTo != 0 || !d.Play {
		t.Fatalf("directive = %+v, want seek to first entry", d)
	}
	if s.VirtualEdit().Active {
		t.Error("entering REEL must clear the virtual edit")
	}
	if s.PlayerState().ReelIndex != 0 {
		t.Errorf("ReelIndex = %d, want 0", s.PlayerState().ReelIndex)
	}
}

func TestSetVirtualEdit_DefaultsToWholeDuration(t *testing.T) {
	s := newTestSession()
	v := s.SetVirtualEdit(clip.VirtualEdit{FilterStyle: "sepia"})

	if !v.Active {
		t.Error("virtual edit should activate")
	}
	if len(v.KeepSegments) != 1 {
		t.Fatalf("KeepSegments = %v, want one default segment", v.KeepSegments)
	}
	if v.KeepSegments[0].Start != 0 || v.KeepSegments[0].End != 120 {
		t.Errorf("default segment = %+v, want {0 120}", v.KeepSegments[0])
	}
}

func TestClearReel_ExitsReelMode(t *testing.T) {
	s := newTestSession()
	s.AppendReel(clip.Clip{ID: "a", Title: "a", StartTime: 0, EndTime: 5})
	if _, ok := s.PlayReel(); !ok {
		t.Fatal("PlayReel should succeed")
	}

	s.ClearReel()
	if s.ReelLen() != 0 {
		t.Errorf("ReelLen = %d, want 0", s.ReelLen())
	}
	if s.PlayerState().Mode != player.ModeFull {
		t.Errorf("mode = %q, want FULL after clearing an active reel", s.PlayerState().Mode)
	}
}

func TestSetAnalysis_SanitizesAndDropsSentinel(t *testing.T) {
	s := New("v1", player.NewController(nil))
	s.SetAnalysis("", []clip.Clip{
		{ID: "ok", Title: "ok", StartTime: 5, EndTime: 2},
		{ID: "sentinel", Title: "not localizable", StartTime: clip.SentinelStart, EndTime: 0},
	})

	clips := s.Clips()
	if len(clips) != 1 {
		t.Fatalf("library size = %d, want 1 (sentinel dropped)", len(clips))
	}
	if clips[0].EndTime <= clips[0].StartTime {
		t.Errorf("clip not sanitized: %+v", clips[0])
	}
}

func TestMergeEdit_AccumulatesRevisions(t *testing.T) {
	s := newTestSession()
	s.MergeEdit(clip.ClipEdit{ClipID: "a", Subtitles: "first"})
	merged := s.MergeEdit(clip.ClipEdit{ClipID: "a", FilterStyle: "grayscale"})

	if merged.Subtitles != "first" || merged.FilterStyle != "grayscale" {
		t.Errorf("merged = %+v", merged)
	}
	if merged.Revision != 2 {
		t.Errorf("Revision = %d, want 2", merged.Revision)
	}
}
