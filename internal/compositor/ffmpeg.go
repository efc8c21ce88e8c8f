package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	// A decode that produces no frame for this long is treated as ended.
	frameStallTimeout = 2 * time.Second

	fallbackFrameRate = 30.0
)

// Probe reads container metadata with ffprobe.
func Probe(path string) (Metadata, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbe(raw)
}

func parseProbe(raw string) (Metadata, error) {
	var meta Metadata
	meta.Duration = gjson.Get(raw, "format.duration").Float()

	streams := gjson.Get(raw, "streams")
	streams.ForEach(func(_, s gjson.Result) bool {
		if s.Get("codec_type").String() != "video" {
			return true
		}
		meta.Width = int(s.Get("width").Int())
		meta.Height = int(s.Get("height").Int())
		if meta.Duration == 0 {
			meta.Duration = s.Get("duration").Float()
		}
		meta.FrameRate = parseRational(s.Get("r_frame_rate").String())
		return false
	})

	if meta.Width == 0 || meta.Height == 0 {
		return meta, errors.New("no video stream found")
	}
	if meta.Duration == 0 {
		return meta, errors.New("could not determine duration")
	}
	if meta.FrameRate == 0 {
		meta.FrameRate = fallbackFrameRate
	}
	return meta, nil
}

// parseRational converts ffprobe's "30000/1001" frame-rate form.
func parseRational(s string) float64 {
	var num, den float64
	if _, err := fmt.Sscanf(s, "%g/%g", &num, &den); err != nil || den == 0 {
		return 0
	}
	return num / den
}

// NewFFmpegSource returns a SourceFactory backed by an ffmpeg rawvideo
// decode pipe.
func NewFFmpegSource(logger *slog.Logger) SourceFactory {
	return func(videoPath string) FrameSource {
		return &ffmpegSource{path: videoPath, logger: logger}
	}
}

// ffmpegSource decodes RGBA frames from one source file. Each Seek tears
// down the current decode process and starts a new one at the target time;
// Next paces frames against the wall clock so captured output stays in
// real-time sync.
type ffmpegSource struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	meta     Metadata
	haveMeta bool

	proc      *exec.Cmd
	frames    <-chan Frame
	base      float64   // source time of the first frame after the seek
	wallStart time.Time // wall time the first frame was delivered
	delivered int64
}

func (s *ffmpegSource) Metadata(ctx context.Context) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.haveMeta {
		return s.meta, nil
	}

	type result struct {
		meta Metadata
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := Probe(s.path)
		ch <- result{m, err}
	}()

	select {
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Metadata{}, r.err
		}
		s.meta = r.meta
		s.haveMeta = true
		return s.meta, nil
	}
}

func (s *ffmpegSource) Seek(ctx context.Context, t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveMeta {
		return ErrNoMetadata
	}
	s.stopLocked()

	pr, pw := io.Pipe()
	cmd := ffmpeg.Input(s.path, ffmpeg.KwArgs{"ss": t}).
		Output("pipe:", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "rgba",
			"an":      "",
		}).
		WithOutput(pw).
		Silent(true).
		Compile()

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return fmt.Errorf("start decode at %.2f: %w", t, err)
	}
	go func() {
		err := cmd.Wait()
		pw.CloseWithError(err)
	}()

	frames := make(chan Frame)
	go s.readFrames(pr, t, frames)

	s.proc = cmd
	s.frames = frames
	s.base = t
	s.wallStart = time.Time{}
	s.delivered = 0
	return nil
}

// readFrames pulls fixed-size RGBA frames off the decode pipe, stamping
// each with its source time.
func (s *ffmpegSource) readFrames(pr *io.PipeReader, base float64, out chan<- Frame) {
	defer close(out)
	defer pr.Close()

	interval := 1.0 / s.meta.FrameRate

	for i := int64(0); ; i++ {
		img := image.NewRGBA(image.Rect(0, 0, s.meta.Width, s.meta.Height))
		if _, err := io.ReadFull(pr, img.Pix); err != nil {
			return
		}
		out <- Frame{Time: base + float64(i)*interval, Image: img}
	}
}

// Next returns the next decoded frame, throttled to the source frame rate
// in wall-clock time. io.EOF covers both a finished stream and a stalled
// decode, which is how a too-short source ends a segment early.
func (s *ffmpegSource) Next(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()

	if frames == nil {
		return Frame{}, errors.New("seek before reading frames")
	}

	stall := time.NewTimer(frameStallTimeout)
	defer stall.Stop()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-stall.C:
		return Frame{}, io.EOF
	case frame, ok := <-frames:
		if !ok {
			return Frame{}, io.EOF
		}
		s.pace(ctx, frame.Time)
		return frame, nil
	}
}

// pace sleeps until the frame's wall-clock due time relative to the first
// frame after the last seek.
func (s *ffmpegSource) pace(ctx context.Context, frameTime float64) {
	s.mu.Lock()
	if s.wallStart.IsZero() {
		s.wallStart = time.Now()
		s.mu.Unlock()
		return
	}
	due := s.wallStart.Add(time.Duration((frameTime - s.base) * float64(time.Second)))
	s.mu.Unlock()

	wait := time.Until(due)
	if wait <= 0 {
		return
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *ffmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *ffmpegSource) stopLocked() {
	if s.proc != nil && s.proc.Process != nil {
		s.proc.Process.Kill()
	}
	if s.frames != nil {
		// Drain so the reader goroutine can exit.
		go func(ch <-chan Frame) {
			for range ch {
			}
		}(s.frames)
	}
	s.proc = nil
	s.frames = nil
}

// NewFFmpegSink returns a SinkFactory that encodes rendered frames to
// H.264 and lays passthrough audio segments from the source underneath.
func NewFFmpegSink(logger *slog.Logger) SinkFactory {
	return func(outPath string, meta Metadata, audio AudioSpec) (FrameSink, error) {
		return newFFmpegSink(outPath, meta, audio, logger)
	}
}

type ffmpegSink struct {
	outPath   string
	videoPath string // video-only intermediate
	meta      Metadata
	audio     AudioSpec
	logger    *slog.Logger

	pw     *io.PipeWriter
	proc   *exec.Cmd
	done   chan error
	frames int64

	finalized bool
	mu        sync.Mutex
}

func newFFmpegSink(outPath string, meta Metadata, audio AudioSpec, logger *slog.Logger) (*ffmpegSink, error) {
	videoPath := outPath + ".video.mp4"

	pr, pw := io.Pipe()
	cmd := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"framerate": meta.FrameRate,
	}).
		Output(videoPath, ffmpeg.KwArgs{
			"c:v":     "libx264",
			"preset":  "veryfast",
			"pix_fmt": "yuv420p",
			"an":      "",
		}).
		OverWriteOutput().
		WithInput(pr).
		Silent(true).
		Compile()

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	return &ffmpegSink{
		outPath:   outPath,
		videoPath: videoPath,
		meta:      meta,
		audio:     audio,
		logger:    logger,
		pw:        pw,
		proc:      cmd,
		done:      done,
	}, nil
}

func (k *ffmpegSink) WriteFrame(f Frame) error {
	if _, err := k.pw.Write(f.Image.Pix); err != nil {
		return fmt.Errorf("write to encoder: %w", err)
	}
	k.frames++
	return nil
}

// Finalize closes the encode pipe, waits for the encoder, then runs the
// audio mux pass. Mux failure degrades to the video-only file rather than
// losing the capture.
func (k *ffmpegSink) Finalize() (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.finalized {
		return fileSize(k.outPath), nil
	}
	k.finalized = true

	k.pw.Close()
	if err := <-k.done; err != nil {
		return 0, fmt.Errorf("encoder exited: %w", err)
	}
	if k.frames == 0 {
		os.Remove(k.videoPath)
		return 0, errors.New("no frames captured")
	}

	if err := k.muxAudio(); err != nil {
		k.logger.Warn("audio mux failed, keeping video-only output", "error", err)
		if err := os.Rename(k.videoPath, k.outPath); err != nil {
			return 0, fmt.Errorf("move video-only output: %w", err)
		}
	} else {
		os.Remove(k.videoPath)
	}
	return fileSize(k.outPath), nil
}

// muxAudio concatenates the source's audio for each played range, in
// order, underneath the rendered video stream. Passthrough only: no
// volume or tempo changes.
func (k *ffmpegSink) muxAudio() error {
	if len(k.audio.Segments) == 0 || k.audio.SourcePath == "" {
		return errors.New("no audio segments")
	}

	video := ffmpeg.Input(k.videoPath)
	source := ffmpeg.Input(k.audio.SourcePath)

	parts := make([]*ffmpeg.Stream, len(k.audio.Segments))
	for i, seg := range k.audio.Segments {
		parts[i] = source.Get("a").
			Filter("atrim", ffmpeg.Args{fmt.Sprintf("start=%g:end=%g", seg.Start, seg.End)}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
	}
	joined := ffmpeg.Filter(parts, "concat", ffmpeg.Args{fmt.Sprintf("n=%d:v=0:a=1", len(parts))})

	return ffmpeg.Output(
		[]*ffmpeg.Stream{video, joined},
		k.outPath,
		ffmpeg.KwArgs{
			"c:v":      "copy",
			"c:a":      "aac",
			"shortest": "",
		},
	).OverWriteOutput().Silent(true).Run()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
