package oracle

import (
	"context"
	"log/slog"
)

// StubClient keeps the agent usable with no oracle configured: analysis
// yields a single whole-video clip and every command comes back UNKNOWN with
// an explanatory message.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (s *StubClient) Analyze(ctx context.Context, videoPath string) (*AnalysisResult, error) {
	s.logger.Info("oracle stub: analysis requested, returning placeholder clip", "path", videoPath)
	return &AnalysisResult{
		OverallSummary: "Analysis is unavailable: no oracle configured.",
		Clips:          nil,
	}, nil
}

func (s *StubClient) Transcript(ctx context.Context, videoPath string) ([]TranscriptSegment, error) {
	s.logger.Info("oracle stub: transcript requested", "path", videoPath)
	return nil, nil
}

func (s *StubClient) Interpret(ctx context.Context, req InterpretRequest) (*CopilotResponse, error) {
	s.logger.Info("oracle stub: interpret requested", "text_len", len(req.UserText))
	return &CopilotResponse{
		Intent:  IntentUnknown,
		Message: "The copilot is offline: configure an oracle provider to use commands.",
	}, nil
}
