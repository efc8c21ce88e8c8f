// Package pipeline wraps the local media tooling the agent shells out to:
// ffprobe for container metadata, ffmpeg for subtitle extraction, and the
// doctor that reports which of those capabilities are actually available
// on this machine.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/clipforge/clipforge-agent/internal/oracle"
)

// FFmpeg is the tooling surface the rest of the agent consumes.
type FFmpeg interface {
	// Duration reports the container duration in seconds.
	Duration(path string) (float64, error)
	// Transcript extracts the embedded subtitle track, when one exists,
	// as transcript segments.
	Transcript(ctx context.Context, path string) ([]oracle.TranscriptSegment, error)
}

// StubFFmpeg stands in when ffmpeg is not installed. Registration still
// works; durations come back zero and transcripts empty.
type StubFFmpeg struct {
	logger *slog.Logger
}

func NewStubFFmpeg(logger *slog.Logger) *StubFFmpeg {
	return &StubFFmpeg{logger: logger}
}

func (f *StubFFmpeg) Duration(path string) (float64, error) {
	f.logger.Info("ffmpeg stub: duration probe skipped", "path", path)
	return 0, nil
}

func (f *StubFFmpeg) Transcript(ctx context.Context, path string) ([]oracle.TranscriptSegment, error) {
	f.logger.Info("ffmpeg stub: transcript extraction skipped", "path", path)
	return nil, nil
}
