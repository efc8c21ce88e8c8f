package compositor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

const (
	defaultSeekTimeout     = 2 * time.Second
	defaultMetadataTimeout = 5 * time.Second

	// activeClipGrace extends a clip's styling half a second past its end
	// so boundary frames keep their overlays.
	activeClipGrace = 0.5
)

// Segment pairs a clip with its visual edit for one stretch of the export.
type Segment struct {
	Clip clip.Clip
	Edit *clip.ClipEdit
}

// Request describes one export: the ordered segments to play through and
// the virtual edit whose filter applies to frames outside any clip.
type Request struct {
	Segments []Segment
	Virtual  clip.VirtualEdit
}

// Artifact is the finished output file.
type Artifact struct {
	Path     string
	Bytes    int64
	Duration float64
}

// Compositor drives the export. One export runs at a time; a second request
// while busy fails fast with ErrExportBusy rather than queueing.
type Compositor struct {
	newSource SourceFactory
	newSink   SinkFactory
	renderer  *Renderer
	logger    *slog.Logger

	busy            atomic.Bool
	seekTimeout     time.Duration
	metadataTimeout time.Duration
}

func New(newSource SourceFactory, newSink SinkFactory, logger *slog.Logger) *Compositor {
	return &Compositor{
		newSource:       newSource,
		newSink:         newSink,
		renderer:        NewRenderer(),
		logger:          logger,
		seekTimeout:     defaultSeekTimeout,
		metadataTimeout: defaultMetadataTimeout,
	}
}

func (c *Compositor) Busy() bool {
	return c.busy.Load()
}

// Export plays every segment in order, rendering overlays frame by frame,
// and produces the artifact only after the entire list has been played
// through once. A failure in any segment aborts the whole export; bytes
// already captured are still flushed to disk as a best-effort salvage, but
// the export itself reports the error.
func (c *Compositor) Export(ctx context.Context, videoPath, outPath string, req Request) (*Artifact, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrExportBusy
	}
	defer c.busy.Store(false)

	if len(req.Segments) == 0 {
		return nil, errors.New("no segments to export")
	}

	source := c.newSource(videoPath)
	defer source.Close()

	metaCtx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	meta, err := source.Metadata(metaCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	ranges := make([]clip.TimeRange, len(req.Segments))
	for i, seg := range req.Segments {
		ranges[i] = clip.SanitizeRange(clip.TimeRange{
			Start: seg.Clip.StartTime,
			End:   seg.Clip.EndTime,
		}, clip.DefaultReelDuration)
	}

	sink, err := c.newSink(outPath, meta, AudioSpec{SourcePath: videoPath, Segments: ranges})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}

	c.logger.Info("export started",
		"segments", len(req.Segments),
		"out", outPath,
		"source_duration", meta.Duration,
	)

	var captured int64
	var rendered float64

	for i, rng := range ranges {
		n, played, segErr := c.playSegment(ctx, source, sink, req, rng)
		captured += n
		rendered += played
		if segErr != nil {
			c.salvage(sink, captured, outPath)
			return nil, fmt.Errorf("segment %d (%.1f-%.1f): %w", i, rng.Start, rng.End, segErr)
		}
		c.logger.Debug("segment captured", "index", i, "frames", n, "seconds", played)
	}

	bytes, err := sink.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalize export: %w", err)
	}

	artifact := &Artifact{Path: outPath, Bytes: bytes, Duration: rendered}
	c.logger.Info("export finished", "out", outPath, "bytes", bytes, "duration", rendered)
	return artifact, nil
}

// playSegment seeks to the range start and pulls frames until the source
// time passes the range end or the stream ends, whichever comes first.
// Returns frames captured and seconds of content played.
func (c *Compositor) playSegment(ctx context.Context, source FrameSource, sink FrameSink, req Request, rng clip.TimeRange) (int64, float64, error) {
	seekCtx, cancel := context.WithTimeout(ctx, c.seekTimeout)
	err := source.Seek(seekCtx, rng.Start)
	cancel()
	if err != nil {
		// A stuck seek proceeds from wherever the source landed rather
		// than hanging the export forever.
		c.logger.Warn("seek did not complete in time, proceeding", "target", rng.Start, "error", err)
	}

	var frames int64
	last := rng.Start

	for {
		if err := ctx.Err(); err != nil {
			return frames, last - rng.Start, err
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			// Source ended or stalled before the range end; the segment
			// is done with whatever was captured.
			return frames, last - rng.Start, nil
		}
		if err != nil {
			return frames, last - rng.Start, err
		}

		if frame.Time >= rng.End {
			return frames, rng.End - rng.Start, nil
		}
		if frame.Time < rng.Start {
			continue
		}

		c.renderFrame(&frame, req)
		if err := sink.WriteFrame(frame); err != nil {
			return frames, last - rng.Start, fmt.Errorf("write frame: %w", err)
		}
		frames++
		last = frame.Time
	}
}

// renderFrame applies the overlay pass for one frame: resolve the active
// clip for the source's current time, apply the winning filter, then draw
// subtitles and stickers on top of the raw image.
func (c *Compositor) renderFrame(frame *Frame, req Request) {
	seg := activeSegmentAt(req.Segments, frame.Time)

	// Filter precedence: per-clip filter > global virtual-edit filter > none.
	filter := ""
	if seg != nil && seg.Edit != nil && seg.Edit.FilterStyle != "" {
		filter = seg.Edit.FilterStyle
	} else if req.Virtual.Active && req.Virtual.FilterStyle != "" {
		filter = req.Virtual.FilterStyle
	}
	if filter != "" {
		c.renderer.ApplyFilter(frame.Image, filter)
	}

	if seg == nil || seg.Edit == nil {
		return
	}
	if seg.Edit.Subtitles != "" {
		c.renderer.DrawSubtitles(frame.Image, seg.Edit.Subtitles)
	}
	if seg.Edit.Overlay != nil {
		c.renderer.DrawOverlay(frame.Image, *seg.Edit.Overlay)
	}
}

func activeSegmentAt(segments []Segment, t float64) *Segment {
	for i := range segments {
		s := &segments[i]
		if t >= s.Clip.StartTime && t <= s.Clip.EndTime+activeClipGrace {
			return s
		}
	}
	return nil
}

// salvage flushes already-captured bytes into the output file after a
// failed export so the user is not left with nothing, without ever
// reporting the partial file as success.
func (c *Compositor) salvage(sink FrameSink, captured int64, outPath string) {
	if captured == 0 {
		return
	}
	if bytes, err := sink.Finalize(); err != nil {
		c.logger.Warn("could not salvage partial export", "error", err)
	} else {
		c.logger.Warn("export failed, partial output salvaged", "out", outPath, "bytes", bytes)
	}
}
