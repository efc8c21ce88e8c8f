package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/gjson"

	"github.com/clipforge/clipforge-agent/internal/clip"
)

const (
	defaultOpenAIModel  = "gpt-4.1-mini"
	analyzeTimeout      = 90 * time.Second
	interpretTimeout    = 45 * time.Second
	maxTranscriptChars  = 24000
	maxContextClipCount = 40
)

// TranscriptFunc produces the transcript an OpenAI-backed analysis runs
// over, typically by extracting embedded subtitles from the source file.
type TranscriptFunc func(ctx context.Context, videoPath string) ([]TranscriptSegment, error)

// OpenAIClient implements both oracles against any OpenAI-compatible chat
// endpoint. Clip detection works from the transcript: the model receives
// timed utterances and returns highlight windows.
type OpenAIClient struct {
	client     openai.Client
	model      string
	transcript TranscriptFunc
	logger     *slog.Logger
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewOpenAIClient(cfg OpenAIConfig, transcript TranscriptFunc, logger *slog.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("oracle API key is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		model:      model,
		transcript: transcript,
		logger:     logger,
	}, nil
}

func (c *OpenAIClient) Transcript(ctx context.Context, videoPath string) ([]TranscriptSegment, error) {
	if c.transcript == nil {
		return nil, errors.New("no transcript source configured")
	}
	return c.transcript(ctx, videoPath)
}

func (c *OpenAIClient) Analyze(ctx context.Context, videoPath string) (*AnalysisResult, error) {
	segments, err := c.Transcript(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("transcript pass: %w", err)
	}
	if len(segments) == 0 {
		return &AnalysisResult{OverallSummary: "No speech found in this video."}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analyzeSystemPrompt),
			openai.UserMessage(renderTranscript(segments)),
		},
		Model:       c.model,
		Temperature: openai.Float(0.3),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "highlight_analysis",
					Strict: openai.Bool(true),
					Schema: analysisSchema(),
				},
			},
		},
	}

	raw, err := c.complete(ctx, params)
	if err != nil {
		return nil, err
	}

	result := parseAnalysis(raw)
	c.logger.Info("analysis oracle returned clips", "clip_count", len(result.Clips))
	return result, nil
}

func (c *OpenAIClient) Interpret(ctx context.Context, req InterpretRequest) (*CopilotResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, interpretTimeout)
	defer cancel()

	contextDoc, _ := json.Marshal(struct {
		Summary      string      `json:"summary,omitempty"`
		Clips        []clip.Clip `json:"clips,omitempty"`
		ActiveClipID string      `json:"active_clip_id,omitempty"`
		Duration     float64     `json:"duration_seconds,omitempty"`
	}{
		Summary:      req.Summary,
		Clips:        truncateClips(req.Clips),
		ActiveClipID: req.ActiveClipID,
		Duration:     req.Duration,
	})

	userPrompt := "Session context:\n" + string(contextDoc) + "\n\nUser command:\n" + req.UserText

	// Intent payload shapes vary per intent, so a strict schema cannot
	// describe them; JSON object mode plus boundary validation does.
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(interpretSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       c.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}

	raw, err := c.complete(ctx, params)
	if err != nil {
		return nil, err
	}

	return ParseCopilotResponse(raw), nil
}

func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil && shouldFallbackToJSONMode(err) {
		// Some gateways reject json_schema; retry in json_object mode and
		// rely on tolerant parsing.
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		resp, err = c.client.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		return "", fmt.Errorf("oracle completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("oracle returned no choices")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if raw == "" {
		return "", errors.New("oracle returned empty content")
	}
	return raw, nil
}

func shouldFallbackToJSONMode(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json_schema") ||
		strings.Contains(msg, "response_format") ||
		(strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema"))
}

// ParseCopilotResponse tolerantly decodes the model's reply. Missing or
// unrecognized intents degrade to UNKNOWN with whatever message survived;
// the resolver treats that as a no-op that still surfaces the message.
func ParseCopilotResponse(raw string) *CopilotResponse {
	doc := extractJSONObject(raw)

	intent := NormalizeIntent(gjson.Get(doc, "intent").String())
	message := gjson.Get(doc, "message").String()
	if message == "" {
		message = "Done."
	}

	var data json.RawMessage
	if d := gjson.Get(doc, "data"); d.Exists() && (d.IsObject() || d.IsArray()) {
		data = json.RawMessage(d.Raw)
	}

	return &CopilotResponse{Intent: intent, Message: message, Data: data}
}

func parseAnalysis(raw string) *AnalysisResult {
	doc := extractJSONObject(raw)

	result := &AnalysisResult{
		OverallSummary: gjson.Get(doc, "overall_summary").String(),
	}
	gjson.Get(doc, "clips").ForEach(func(_, v gjson.Result) bool {
		result.Clips = append(result.Clips, clip.Clip{
			Title:       v.Get("title").String(),
			Description: v.Get("description").String(),
			StartTime:   v.Get("start_time").Float(),
			EndTime:     v.Get("end_time").Float(),
			Category:    v.Get("category").String(),
			Tags:        stringSlice(v.Get("tags")),
		})
		return true
	})
	return result
}

func stringSlice(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// extractJSONObject strips code fences and leading prose, returning the
// first top-level JSON object in the text.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		return raw
	}
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return raw
}

func renderTranscript(segments []TranscriptSegment) string {
	var b strings.Builder
	b.WriteString("Transcript with timestamps (seconds):\n")
	for _, s := range segments {
		line := fmt.Sprintf("[%.1f-%.1f] %s\n", s.Start, s.End, s.Text)
		if b.Len()+len(line) > maxTranscriptChars {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func truncateClips(clips []clip.Clip) []clip.Clip {
	if len(clips) <= maxContextClipCount {
		return clips
	}
	return clips[:maxContextClipCount]
}

func analysisSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"overall_summary", "clips"},
		"properties": map[string]interface{}{
			"overall_summary": map[string]interface{}{"type": "string"},
			"clips": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"title", "description", "start_time", "end_time", "category", "tags"},
					"properties": map[string]interface{}{
						"title":       map[string]interface{}{"type": "string"},
						"description": map[string]interface{}{"type": "string"},
						"start_time":  map[string]interface{}{"type": "number"},
						"end_time":    map[string]interface{}{"type": "number"},
						"category":    map[string]interface{}{"type": "string"},
						"tags": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
		},
	}
}

const analyzeSystemPrompt = `You are a short-form video editor. Given a timed transcript,
identify the most engaging highlight moments. Return JSON with an
overall_summary and a clips array; each clip has title, description,
start_time, end_time (seconds), category, and tags. Prefer 5-12 clips of
10-60 seconds each. Output JSON only.`

const interpretSystemPrompt = `You translate a user's editing command into one structured intent.
Valid intents: SEARCH, EDIT, CLIP_EDIT, REEL_ADD, REEL_REMOVE, REEL_CLEAR, UNKNOWN.
Respond with JSON: {"intent": "...", "message": "short friendly confirmation", "data": {...}}.
Payloads:
- SEARCH: data is a clip {title, description, start_time, end_time, category, tags};
  use start_time -1 when the topic exists but cannot be localized.
- EDIT: data {description, keep_segments: [{start, end}], filter_style, transition}.
- CLIP_EDIT: data {filter_style, subtitles, overlay: {type, content, position}, start_time, end_time};
  include only fields the user asked to change.
- REEL_ADD: data {"all": true} or {clips: [...]} or a single clip {start_time, end_time}.
- REEL_REMOVE: data {index}; -1 means remove the last entry.
- REEL_CLEAR: data {}.
If the command does not map to any intent, use UNKNOWN and explain in message.
Output JSON only.`
