package compositor

import (
	"io"
	"math"
	"testing"
)

func TestParseProbe(t *testing.T) {
	raw := `{
		"format": {"duration": "12.5"},
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"}
		]
	}`

	meta, err := parseProbe(raw)
	if err != nil {
		t.Fatalf("parseProbe() error = %v", err)
	}
	if meta.Width != 1280 || meta.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", meta.Width, meta.Height)
	}
	if meta.Duration != 12.5 {
		t.Errorf("duration = %v, want 12.5", meta.Duration)
	}
	if math.Abs(meta.FrameRate-29.97) > 0.01 {
		t.Errorf("frame rate = %v, want ~29.97", meta.FrameRate)
	}
}

func TestParseProbe_NoVideoStream(t *testing.T) {
	_, err := parseProbe(`{"format": {"duration": "3"}, "streams": [{"codec_type": "audio"}]}`)
	if err == nil {
		t.Error("parseProbe() should reject audio-only input")
	}
}

func TestParseRational(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseRational(tt.in); got != tt.want {
			t.Errorf("parseRational(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadFrames_StampsFramesAtSourceRate(t *testing.T) {
	src := &ffmpegSource{
		meta:     Metadata{Width: 2, Height: 2, FrameRate: 10},
		haveMeta: true,
	}

	pr, pw := io.Pipe()
	out := make(chan Frame, 4)
	go src.readFrames(pr, 1.5, out)

	frame := make([]byte, 2*2*4)
	for i := range frame {
		frame[i] = 0xAB
	}
	go func() {
		pw.Write(frame)
		pw.Write(frame)
		// A truncated tail frame must end the stream, not emit garbage.
		pw.Write(frame[:5])
		pw.Close()
	}()

	var got []Frame
	for f := range out {
		got = append(got, f)
	}

	if len(got) != 2 {
		t.Fatalf("read %d frames, want 2 complete frames", len(got))
	}
	if got[0].Time != 1.5 {
		t.Errorf("first frame time = %v, want the seek base 1.5", got[0].Time)
	}
	if math.Abs(got[1].Time-1.6) > 1e-9 {
		t.Errorf("second frame time = %v, want base + 1/rate = 1.6", got[1].Time)
	}
	for i, f := range got {
		if len(f.Image.Pix) != 16 {
			t.Errorf("frame %d pix length = %d, want width*height*4 = 16", i, len(f.Image.Pix))
		}
		if f.Image.Pix[0] != 0xAB {
			t.Errorf("frame %d lost its pixel data", i)
		}
	}
}
