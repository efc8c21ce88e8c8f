// Package video is the registry of source files the agent serves, and the
// durable job queue that runs analysis and export work against them.
package video

import (
	"path/filepath"
	"strings"
	"time"
)

type Video struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Mtime       time.Time `json:"mtime"`
	Fingerprint string    `json:"fingerprint"`
	Duration    float64   `json:"duration"`
	Present     bool      `json:"present"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	JobTypeAnalyze = "analyze"
	JobTypeExport  = "export"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is one unit of queued work. Payload carries type-specific JSON; for
// exports it is the render plan, Artifact the finished output path.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	VideoID   string    `json:"video_id,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

func IsVideoFile(filename string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(filename))]
}
