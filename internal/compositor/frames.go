// Package compositor is the export engine. It replays an ordered list of
// source segments through a frame pipeline, draws per-frame overlays
// (filters, subtitles, stickers), and muxes the rendered frames with
// passthrough audio into a downloadable file.
package compositor

import (
	"context"
	"errors"
	"image"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

var (
	// ErrExportBusy rejects a second export while one is in flight.
	ErrExportBusy = errors.New("an export is already in progress")
	// ErrNoSurface means the sink could not be constructed; the export
	// aborts before any segment is played.
	ErrNoSurface = errors.New("rendering surface unavailable")
	// ErrNoMetadata means the source never reported its duration.
	ErrNoMetadata = errors.New("source metadata unavailable")
)

// Metadata describes the opened source.
type Metadata struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
}

// Frame is one decoded frame stamped with its source-time position.
type Frame struct {
	Time  float64
	Image *image.RGBA
}

// FrameSource decodes the export's private copy of the source video. Next
// delivers frames in wall-clock sync with decoded playback, which is what
// keeps captured output aligned with real time; it returns io.EOF when the
// stream ends or stalls out.
type FrameSource interface {
	Metadata(ctx context.Context) (Metadata, error)
	Seek(ctx context.Context, t float64) error
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// AudioSpec tells the sink which source ranges to lay under the rendered
// video. Audio is passthrough only: no volume or EQ changes.
type AudioSpec struct {
	SourcePath string
	Segments   []clip.TimeRange
}

// FrameSink encodes rendered frames into the output artifact. Finalize
// flushes whatever was captured and reports the byte count; it is called
// even after a failed export so partial captures are salvaged to disk.
type FrameSink interface {
	WriteFrame(f Frame) error
	Finalize() (int64, error)
}

// SourceFactory and SinkFactory let tests substitute fakes for the ffmpeg
// pipeline.
type (
	SourceFactory func(videoPath string) FrameSource
	SinkFactory   func(outPath string, meta Metadata, audio AudioSpec) (FrameSink, error)
)
