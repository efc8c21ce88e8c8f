package api

import (
	"time"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/player"
	"github.com/clipforge/clipforge-agent/internal/video"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State        string              `json:"state"`
	LastError    string              `json:"last_error,omitempty"`
	VideosCount  int                 `json:"videos_count"`
	JobsRunning  int                 `json:"jobs_running"`
	ActiveJob    *JobResponse        `json:"active_job,omitempty"`
	Capabilities *CapabilityResponse `json:"capabilities,omitempty"`
}

type CapabilityResponse struct {
	HasFFmpeg        bool   `json:"has_ffmpeg"`
	HasFFprobe       bool   `json:"has_ffprobe"`
	OracleConfigured bool   `json:"oracle_configured"`
	CanExport        bool   `json:"can_export"`
	LastProbeAt      string `json:"last_probe_at,omitempty"`
}

type RegisterVideoRequest struct {
	Path string `json:"path"`
}

type RegisterVideoResponse struct {
	Video VideoResponse `json:"video"`
	JobID string        `json:"job_id,omitempty"`
	// Cached is true when a prior analysis was found and no analyze job
	// was queued.
	Cached bool `json:"cached"`
}

type VideoResponse struct {
	ID          string  `json:"id"`
	Path        string  `json:"path"`
	Filename    string  `json:"filename"`
	Size        int64   `json:"size"`
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
	Present     bool    `json:"present"`
	CreatedAt   string  `json:"created_at"`
}

type VideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type ClipsResponse struct {
	Summary string      `json:"summary,omitempty"`
	Clips   []clip.Clip `json:"clips"`
}

type TranscriptResponse struct {
	Segments []oracle.TranscriptSegment `json:"segments"`
}

type ReelResponse struct {
	Entries []clip.Clip `json:"entries"`
}

type CopilotRequest struct {
	Text string `json:"text"`
}

type CopilotResponse struct {
	Intent    string            `json:"intent"`
	Message   string            `json:"message"`
	ClipID    string            `json:"clip_id,omitempty"`
	Directive *player.Directive `json:"directive,omitempty"`
}

type PlayerModeRequest struct {
	Mode   string `json:"mode"`
	ClipID string `json:"clip_id,omitempty"`
}

type PlayerModeResponse struct {
	Directive player.Directive `json:"directive"`
	State     player.State     `json:"state"`
}

type TickResponse struct {
	Directive player.Directive `json:"directive"`
}

type ExportRequest struct {
	// Source selects what to export: "clips" (default), "reel", or
	// "virtual".
	Source   string   `json:"source,omitempty"`
	ClipIDs  []string `json:"clip_ids,omitempty"`
	Filename string   `json:"filename,omitempty"`
}

type ExportResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	VideoID   string `json:"video_id,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ArtifactResponse struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime string `json:"mod_time"`
}

type ArtifactsResponse struct {
	Artifacts []ArtifactResponse `json:"artifacts"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func VideoToResponse(v *video.Video) VideoResponse {
	return VideoResponse{
		ID:          v.ID,
		Path:        v.Path,
		Filename:    v.Filename,
		Size:        v.Size,
		Duration:    v.Duration,
		Fingerprint: v.Fingerprint,
		Present:     v.Present,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *video.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		VideoID:   j.VideoID,
		Artifact:  j.Artifact,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
