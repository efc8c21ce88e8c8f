package oracle

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OracleError represents an error response from the analysis service.
type OracleError struct {
	StatusCode int
	Body       string
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *OracleError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient talks to a self-hosted analysis/interpretation service over
// HTTP. The service owns upload, transcode, and model selection; the agent
// only sends a video reference and receives structured results.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type analyzeRequest struct {
	VideoPath string `json:"video_path"`
}

type interpretWire struct {
	Intent  string          `json:"intent"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *HTTPClient) Analyze(ctx context.Context, videoPath string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.post(ctx, "/api/analyze", analyzeRequest{VideoPath: videoPath}, &result); err != nil {
		return nil, err
	}
	c.logger.Info("analysis oracle returned clips", "clip_count", len(result.Clips))
	return &result, nil
}

func (c *HTTPClient) Transcript(ctx context.Context, videoPath string) ([]TranscriptSegment, error) {
	var result struct {
		Segments []TranscriptSegment `json:"segments"`
	}
	if err := c.post(ctx, "/api/transcript", analyzeRequest{VideoPath: videoPath}, &result); err != nil {
		return nil, err
	}
	c.logger.Info("transcript oracle returned segments", "segment_count", len(result.Segments))
	return result.Segments, nil
}

func (c *HTTPClient) Interpret(ctx context.Context, req InterpretRequest) (*CopilotResponse, error) {
	body := struct {
		InterpretRequest
		VideoPath string `json:"video_path"`
	}{InterpretRequest: req, VideoPath: req.VideoPath}

	var wire interpretWire
	if err := c.post(ctx, "/api/interpret", body, &wire); err != nil {
		return nil, err
	}

	return &CopilotResponse{
		Intent:  NormalizeIntent(wire.Intent),
		Message: wire.Message,
		Data:    wire.Data,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal oracle payload: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Clipforge-Request-Id", newRequestID())

	c.logger.Debug("calling oracle service", "url", url, "body_bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OracleError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}

func newRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
