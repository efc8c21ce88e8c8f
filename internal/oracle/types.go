// Package oracle defines the two external service boundaries the agent
// depends on: the analysis oracle that turns a source video into highlight
// clips and a transcript, and the intent oracle that turns free-text copilot
// commands into structured edit intents.
package oracle

import (
	"context"
	"encoding/json"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

// Intent values the intent oracle may return. Anything else is treated as
// IntentUnknown.
type Intent string

const (
	IntentSearch     Intent = "SEARCH"
	IntentEdit       Intent = "EDIT"
	IntentClipEdit   Intent = "CLIP_EDIT"
	IntentReelAdd    Intent = "REEL_ADD"
	IntentReelRemove Intent = "REEL_REMOVE"
	IntentReelClear  Intent = "REEL_CLEAR"
	IntentUnknown    Intent = "UNKNOWN"
)

// AnalysisResult is the expensive clip-detection pass.
type AnalysisResult struct {
	OverallSummary string      `json:"overall_summary"`
	Clips          []clip.Clip `json:"clips"`
}

// TranscriptSegment is one utterance from the cheap transcript pass.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// CopilotResponse is the decoded answer of the intent oracle. Data is left
// raw: payload shapes are loose and validated downstream at the resolver
// boundary.
type CopilotResponse struct {
	Intent  Intent          `json:"intent"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// InterpretRequest carries the user's command plus enough session context
// for the oracle to resolve references like "that clip".
type InterpretRequest struct {
	VideoPath    string              `json:"-"`
	UserText     string              `json:"user_text"`
	Summary      string              `json:"summary,omitempty"`
	Clips        []clip.Clip         `json:"clips,omitempty"`
	ActiveClipID string              `json:"active_clip_id,omitempty"`
	Duration     float64             `json:"duration,omitempty"`
	Transcript   []TranscriptSegment `json:"-"`
}

// Client is the narrow contract the core consumes. The two analysis passes
// may be invoked independently and in either order.
type Client interface {
	Analyze(ctx context.Context, videoPath string) (*AnalysisResult, error)
	Transcript(ctx context.Context, videoPath string) ([]TranscriptSegment, error)
	Interpret(ctx context.Context, req InterpretRequest) (*CopilotResponse, error)
}

// NormalizeIntent maps arbitrary oracle output onto the closed intent set.
func NormalizeIntent(s string) Intent {
	switch Intent(s) {
	case IntentSearch, IntentEdit, IntentClipEdit, IntentReelAdd, IntentReelRemove, IntentReelClear:
		return Intent(s)
	default:
		return IntentUnknown
	}
}
