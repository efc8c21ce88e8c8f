package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/clipforge/clipforge-agent/internal/cache"
	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/compositor"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/oracle"
)

// ExportPlan is the serialized job payload for an export: the segments and
// virtual edit frozen at the moment the export was requested, so later
// session edits cannot bleed into a queued job.
type ExportPlan struct {
	Filename string               `json:"filename"`
	Segments []compositor.Segment `json:"segments"`
	Virtual  clip.VirtualEdit     `json:"virtual"`
}

// Exporter is the slice of the compositor the runner needs.
type Exporter interface {
	Export(ctx context.Context, videoPath, outPath string, req compositor.Request) (*compositor.Artifact, error)
	Busy() bool
}

// Runner polls the job queue and executes one job at a time. Analysis
// results land in the cache keyed by fingerprint; exports land in the
// artifacts directory.
type Runner struct {
	repo         Repository
	oracle       oracle.Client
	cache        *cache.Store
	exporter     Exporter
	artifactsDir string
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, oc oracle.Client, store *cache.Store, exporter Exporter, artifactsDir string, logger *slog.Logger) *Runner {
	return &Runner{
		repo:         repo,
		oracle:       oc,
		cache:        store,
		exporter:     exporter,
		artifactsDir: artifactsDir,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool  { return r.paused.Load() }
func (r *Runner) IsRunning() bool { return r.running.Load() }

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing job", "job_id", job.ID, "type", job.Type)

	switch job.Type {
	case JobTypeAnalyze:
		r.processAnalyzeJob(ctx, job)
	case JobTypeExport:
		r.processExportJob(ctx, job)
	default:
		r.logger.Warn("unknown job type", "type", job.Type)
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "unknown job type")
	}
}

// processAnalyzeJob runs the two oracle passes. The transcript pass is
// cheap and optional: its failure is logged but does not fail the job. The
// clip-detection pass is the job.
func (r *Runner) processAnalyzeJob(ctx context.Context, job *Job) {
	if r.oracle == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "oracle not configured")
		return
	}

	v, err := r.repo.GetVideo(ctx, job.VideoID)
	if err != nil || v == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "video not found")
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")

	if segments, err := r.oracle.Transcript(ctx, v.Path); err != nil {
		r.logger.Warn("transcript pass failed", "job_id", job.ID, "error", err)
	} else if r.cache != nil {
		if err := r.cache.SaveTranscript(ctx, v.Fingerprint, segments); err != nil {
			r.logger.Warn("failed to cache transcript", "job_id", job.ID, "error", err)
		}
	}
	r.repo.UpdateJobProgress(ctx, job.ID, 40)

	result, err := r.oracle.Analyze(ctx, v.Path)
	if err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	if r.cache != nil {
		if err := r.cache.SaveAnalysis(ctx, v.Fingerprint, result.OverallSummary, result.Clips); err != nil {
			r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, fmt.Sprintf("cache write failed: %v", err))
			return
		}
	}

	r.repo.UpdateJobProgress(ctx, job.ID, 100)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
	r.logger.Info("analyze job completed",
		"job_id", job.ID,
		"video_id", v.ID,
		"clips", len(result.Clips),
	)
}

func (r *Runner) processExportJob(ctx context.Context, job *Job) {
	if r.exporter == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "exporter not configured")
		return
	}

	v, err := r.repo.GetVideo(ctx, job.VideoID)
	if err != nil || v == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "video not found")
		return
	}

	var plan ExportPlan
	if err := json.Unmarshal([]byte(job.Payload), &plan); err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, fmt.Sprintf("bad export plan: %v", err))
		return
	}
	if len(plan.Segments) == 0 {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "export plan has no segments")
		return
	}

	if r.exporter.Busy() {
		// Leave the job pending; the next poll retries once the current
		// export drains.
		r.logger.Info("exporter busy, deferring job", "job_id", job.ID)
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")

	if err := os.MkdirAll(r.artifactsDir, 0755); err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, fmt.Sprintf("artifacts dir: %v", err))
		return
	}
	outPath := filepath.Join(r.artifactsDir, plan.Filename)

	artifact, err := r.exporter.Export(ctx, v.Path, outPath, compositor.Request{
		Segments: plan.Segments,
		Virtual:  plan.Virtual,
	})
	if err != nil {
		if errors.Is(err, compositor.ErrExportBusy) {
			r.repo.UpdateJobStatus(ctx, job.ID, JobStatusPending, "")
			return
		}
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, fmt.Sprintf("export failed: %v", err))
		return
	}

	r.repo.SetJobArtifact(ctx, job.ID, artifact.Path)
	r.writeCutList(plan, artifact.Path)
	r.repo.UpdateJobProgress(ctx, job.ID, 100)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
	r.logger.Info("export job completed",
		"job_id", job.ID,
		"artifact", artifact.Path,
		"bytes", artifact.Bytes,
		"duration", artifact.Duration,
	)
}

// writeCutList drops a cut list next to the artifact so the render can be
// reproduced in an editor. Failure is cosmetic and never fails the job.
func (r *Runner) writeCutList(plan ExportPlan, artifactPath string) {
	entries := make([]export.CutEntry, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		entries = append(entries, export.CutEntry{
			Name:  seg.Clip.Title,
			Start: seg.Clip.StartTime,
			End:   seg.Clip.EndTime,
		})
	}

	base := strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath))
	edl := export.GenerateEDL(entries, filepath.Base(base), 30)
	if err := os.WriteFile(base+".edl", []byte(edl), 0644); err != nil {
		r.logger.Warn("failed to write cut list", "path", base+".edl", "error", err)
	}
}
