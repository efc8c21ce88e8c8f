package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/clipforge/clipforge-agent/internal/compositor"
	"github.com/clipforge/clipforge-agent/internal/oracle"
)

type RealFFmpeg struct{}

func NewFFmpeg() *RealFFmpeg {
	return &RealFFmpeg{}
}

func (f *RealFFmpeg) Duration(path string) (float64, error) {
	meta, err := compositor.Probe(path)
	if err != nil {
		return 0, err
	}
	return meta.Duration, nil
}

// Transcript dumps the first embedded subtitle stream to SRT and parses
// it. Files without a subtitle track return empty, not an error.
func (f *RealFFmpeg) Transcript(ctx context.Context, path string) ([]oracle.TranscriptSegment, error) {
	tmpDir, err := os.MkdirTemp("", "clipforge_subs_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, "track.srt")
	err = ffmpeg.Input(path).
		Output(outPath, ffmpeg.KwArgs{"map": "0:s:0?"}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("extract subtitles: %w", err)
	}

	file, err := os.Open(outPath)
	if err != nil {
		// The optional stream map produced nothing.
		return nil, nil
	}
	defer file.Close()

	return ParseSubtitles(file)
}

// Matches SRT ("00:01:02,350") and WebVTT ("00:01:02.350") cue lines.
var cueTimeRegex = regexp.MustCompile(
	`(\d{2}:\d{2}:\d{2}[.,]\d{1,3})\s+-->\s+(\d{2}:\d{2}:\d{2}[.,]\d{1,3})`)

var markupRegex = regexp.MustCompile(`<[^>]*>`)

// ParseSubtitles reads SRT or WebVTT cues into transcript segments. Cue
// identifiers, headers, and markup tags are dropped; multi-line cue text is
// joined with spaces.
func ParseSubtitles(r io.Reader) ([]oracle.TranscriptSegment, error) {
	var segments []oracle.TranscriptSegment
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		matches := cueTimeRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		start, ok1 := parseCueTime(matches[1])
		end, ok2 := parseCueTime(matches[2])
		if !ok1 || !ok2 {
			continue
		}

		var textLines []string
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}
			text = markupRegex.ReplaceAllString(text, "")
			if text != "" {
				textLines = append(textLines, text)
			}
		}
		if len(textLines) == 0 {
			continue
		}

		segments = append(segments, oracle.TranscriptSegment{
			Start: start,
			End:   end,
			Text:  strings.Join(textLines, " "),
		})
	}
	return segments, scanner.Err()
}

// parseCueTime converts "00:01:02,350" or "00:01:02.350" to seconds.
func parseCueTime(s string) (float64, bool) {
	s = strings.Replace(s, ",", ".", 1)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}
