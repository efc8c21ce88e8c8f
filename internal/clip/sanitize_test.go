package clip

import (
	"math"
	"testing"
)

func TestSanitize_Invariants(t *testing.T) {
	tests := []struct {
		name string
		in   Clip
	}{
		{"negative start", Clip{StartTime: -5, EndTime: 3}},
		{"nan start", Clip{StartTime: math.NaN(), EndTime: 2}},
		{"inf end", Clip{StartTime: 1, EndTime: math.Inf(1)}},
		{"end before start", Clip{StartTime: 10, EndTime: 4}},
		{"zero duration", Clip{StartTime: 7, EndTime: 7}},
		{"well formed", Clip{StartTime: 2, EndTime: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in, DefaultClipDuration)
			if got.StartTime < 0 {
				t.Errorf("StartTime = %v, want >= 0", got.StartTime)
			}
			if got.EndTime <= got.StartTime {
				t.Errorf("EndTime = %v not after StartTime = %v", got.EndTime, got.StartTime)
			}
		})
	}
}

func TestSanitize_Defaults(t *testing.T) {
	got := Sanitize(Clip{StartTime: 1, EndTime: 1}, DefaultClipDuration)

	if got.EndTime != got.StartTime+DefaultClipDuration {
		t.Errorf("EndTime = %v, want start+%v", got.EndTime, DefaultClipDuration)
	}
	if got.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", got.Category, DefaultCategory)
	}
	if got.Title == "" {
		t.Error("expected a default title")
	}
	if got.ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestEffectiveEnd(t *testing.T) {
	tests := []struct {
		name     string
		c        Clip
		fallback float64
		want     float64
	}{
		{"valid end", Clip{StartTime: 20, EndTime: 25}, 10, 25},
		{"collapsed", Clip{StartTime: 20, EndTime: 20}, 10, 30},
		{"reel fallback", Clip{StartTime: 3, EndTime: 0}, 5, 8},
		{"nan end", Clip{StartTime: 4, EndTime: math.NaN()}, 10, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveEnd(tt.c, tt.fallback); got != tt.want {
				t.Errorf("EffectiveEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedupe_NearStartTimes(t *testing.T) {
	clips := []Clip{
		{ID: "a", StartTime: 10, EndTime: 15},
		{ID: "b", StartTime: 10.4, EndTime: 16},
		{ID: "c", StartTime: 30, EndTime: 35},
	}

	got := Dedupe(clips)
	if len(got) != 2 {
		t.Fatalf("Dedupe() kept %d clips, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("Dedupe() kept %q and %q, want a and c", got[0].ID, got[1].ID)
	}
}

func TestClampTime(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-3, 0},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
		{math.Inf(1), 0},
		{12.5, 12.5},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ClampTime(tt.in); got != tt.want {
			t.Errorf("ClampTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
