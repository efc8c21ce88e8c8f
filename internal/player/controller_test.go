package player

import (
	"math"
	"testing"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

func TestTick_FullWithVirtualEdit(t *testing.T) {
	virtual := clip.VirtualEdit{
		Active:       true,
		KeepSegments: []clip.TimeRange{{Start: 0, End: 5}, {Start: 10, End: 15}},
		Transition:   clip.TransitionFlash,
	}

	tests := []struct {
		name       string
		now        float64
		duration   float64
		wantAction Action
		wantSeek   float64
		wantPulse  bool
	}{
		{"inside first segment", 3, 60, ActionNone, 0, false},
		{"in gap seeks next segment", 7, 60, ActionSeek, 10, true},
		{"inside second segment", 12, 60, ActionNone, 0, false},
		{"past last segment pauses at end", 16, 60, ActionPause, 60, false},
		{"already near duration", 59.8, 60, ActionNone, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(nil)
			got := c.Tick(Tick{CurrentTime: tt.now, Duration: tt.duration}, virtual, &clip.Reel{})
			if got.Action != tt.wantAction {
				t.Fatalf("Action = %q, want %q", got.Action, tt.wantAction)
			}
			if got.Action == ActionSeek && got.SeekTo != tt.wantSeek {
				t.Errorf("SeekTo = %v, want %v", got.SeekTo, tt.wantSeek)
			}
			if got.Action == ActionPause && got.SeekTo != tt.wantSeek {
				t.Errorf("pause snap = %v, want %v", got.SeekTo, tt.wantSeek)
			}
			if got.Pulse != tt.wantPulse {
				t.Errorf("Pulse = %v, want %v", got.Pulse, tt.wantPulse)
			}
		})
	}
}

func TestTick_FullWithoutTransitionSkipsPulse(t *testing.T) {
	virtual := clip.VirtualEdit{
		Active:       true,
		KeepSegments: []clip.TimeRange{{Start: 0, End: 5}, {Start: 10, End: 15}},
		Transition:   clip.TransitionNone,
	}

	c := NewController(nil)
	got := c.Tick(Tick{CurrentTime: 7, Duration: 60}, virtual, &clip.Reel{})
	if got.Action != ActionSeek || got.SeekTo != 10 {
		t.Fatalf("directive = %+v, want seek to 10", got)
	}
	if got.Pulse {
		t.Error("pulse should be suppressed when transition is none")
	}
}

func TestTick_SingleLoops(t *testing.T) {
	c := NewController(nil)
	d := c.EnterSingle(clip.Clip{ID: "a", Title: "a", StartTime: 20, EndTime: 25})
	if d.Action != ActionSeek || d.SeekTo != 20 || !d.Play {
		t.Fatalf("EnterSingle directive = %+v", d)
	}

	got := c.Tick(Tick{CurrentTime: 25.1, Duration: 100}, clip.VirtualEdit{}, &clip.Reel{})
	if got.Action != ActionSeek || got.SeekTo != 20 || !got.Play {
		t.Fatalf("loop directive = %+v, want seek back to 20 and play", got)
	}
	if got.Mode != ModeSingle {
		t.Errorf("Mode = %q, want SINGLE", got.Mode)
	}

	got = c.Tick(Tick{CurrentTime: 22, Duration: 100}, clip.VirtualEdit{}, &clip.Reel{})
	if got.Action != ActionNone {
		t.Errorf("mid-clip tick should not intervene, got %+v", got)
	}
}

func TestTick_SingleFallbackDuration(t *testing.T) {
	c := NewController(nil)
	c.EnterSingle(clip.Clip{ID: "a", Title: "a", StartTime: 20, EndTime: 0})

	// Effective end is start+10 after defaulting.
	got := c.Tick(Tick{CurrentTime: 29, Duration: 100}, clip.VirtualEdit{}, &clip.Reel{})
	if got.Action != ActionNone {
		t.Fatalf("tick at 29 = %+v, effective end should be 30", got)
	}
	got = c.Tick(Tick{CurrentTime: 30.2, Duration: 100}, clip.VirtualEdit{}, &clip.Reel{})
	if got.Action != ActionSeek || got.SeekTo != 20 {
		t.Fatalf("tick at 30.2 = %+v, want loop to 20", got)
	}
}

func TestTick_ReelAdvances(t *testing.T) {
	reel := &clip.Reel{}
	reel.Append(clip.Clip{ID: "a", Title: "a", StartTime: 0, EndTime: 5})
	reel.Append(clip.Clip{ID: "b", Title: "b", StartTime: 30, EndTime: 33})

	c := NewController(nil)
	d, ok := c.EnterReel(reel, 0)
	if !ok || d.SeekTo != 0 || !d.Play {
		t.Fatalf("EnterReel directive = %+v, ok=%v", d, ok)
	}

	got := c.Tick(Tick{CurrentTime: 5.2, Duration: 60}, clip.VirtualEdit{}, reel)
	if got.Action != ActionSeek || got.SeekTo != 30 || !got.Play {
		t.Fatalf("advance directive = %+v, want seek to 30", got)
	}
	if !got.Pulse {
		t.Error("reel boundary should pulse")
	}
	if c.State().ReelIndex != 1 {
		t.Errorf("ReelIndex = %d, want 1", c.State().ReelIndex)
	}
}

func TestTick_ReelExhaustionReturnsToFull(t *testing.T) {
	reel := &clip.Reel{}
	reel.Append(clip.Clip{ID: "a", Title: "a", StartTime: 0, EndTime: 5})

	c := NewController(nil)
	c.EnterReel(reel, 0)

	got := c.Tick(Tick{CurrentTime: 5.5, Duration: 60}, clip.VirtualEdit{}, reel)
	if got.Action != ActionPause {
		t.Fatalf("directive = %+v, want pause", got)
	}
	if got.Mode != ModeFull {
		t.Errorf("Mode = %q, want FULL after reel exhaustion", got.Mode)
	}
	if c.State().Mode != ModeFull {
		t.Errorf("controller state = %q, want FULL", c.State().Mode)
	}
}

func TestEnterReel_EmptyReel(t *testing.T) {
	c := NewController(nil)
	if _, ok := c.EnterReel(&clip.Reel{}, 0); ok {
		t.Error("entering an empty reel should report ok=false")
	}
	if c.State().Mode != ModeFull {
		t.Errorf("mode = %q, want unchanged FULL", c.State().Mode)
	}
}

func TestTick_MalformedTimestampsClamped(t *testing.T) {
	virtual := clip.VirtualEdit{
		Active:       true,
		KeepSegments: []clip.TimeRange{{Start: 2, End: 5}},
	}

	c := NewController(nil)
	got := c.Tick(Tick{CurrentTime: math.NaN(), Duration: 60}, virtual, &clip.Reel{})
	// NaN coerces to 0, which is in the gap before the first segment.
	if got.Action != ActionSeek || got.SeekTo != 2 {
		t.Fatalf("directive = %+v, want seek to 2", got)
	}
}

func TestTick_OverlappingSegmentsTerminate(t *testing.T) {
	virtual := clip.VirtualEdit{
		Active: true,
		KeepSegments: []clip.TimeRange{
			{Start: 0, End: 10},
			{Start: 5, End: 12},
			{Start: 8, End: 9},
		},
	}

	c := NewController(nil)
	for _, now := range []float64{0, 4, 6, 9, 11, 13} {
		got := c.Tick(Tick{CurrentTime: now, Duration: 60}, virtual, &clip.Reel{})
		if got.Action == ActionSeek && got.SeekTo <= now {
			t.Errorf("tick at %v seeks backwards to %v", now, got.SeekTo)
		}
	}
}
