package export

import (
	"strings"
	"testing"
)

func TestGenerateEDL(t *testing.T) {
	entries := []CutEntry{
		{Name: "Opening", Start: 0, End: 2},
		{Name: "Goal", Start: 10, End: 11.5},
	}

	edl := GenerateEDL(entries, "highlight", 30)

	if !strings.HasPrefix(edl, "TITLE: highlight\nFCM: NON-DROP FRAME") {
		t.Errorf("header wrong:\n%s", edl)
	}
	if !strings.Contains(edl, "00:00:10:00 00:00:11:15") {
		t.Errorf("source timecodes missing:\n%s", edl)
	}
	// Record track is contiguous: the second cut starts where the first ended.
	if !strings.Contains(edl, "00:00:02:00 00:00:03:15") {
		t.Errorf("record timecodes wrong:\n%s", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Goal") {
		t.Errorf("clip name missing:\n%s", edl)
	}
}

func TestGenerateEDL_DropFrameAndDegenerate(t *testing.T) {
	edl := GenerateEDL([]CutEntry{
		{Name: "ok", Start: 1, End: 2},
		{Name: "empty", Start: 5, End: 5},
	}, "t", 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Error("29.97 fps should be drop frame")
	}
	if strings.Contains(edl, "empty") {
		t.Error("zero-length entries must be skipped")
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		seconds float64
		fps     int
		want    string
	}{
		{0, 30, "00:00:00:00"},
		{1.5, 30, "00:00:01:15"},
		{3661, 25, "01:01:01:00"},
	}
	for _, tt := range tests {
		if got := secondsToTimecode(tt.seconds, tt.fps); got != tt.want {
			t.Errorf("secondsToTimecode(%v, %d) = %s, want %s", tt.seconds, tt.fps, got, tt.want)
		}
	}
}
