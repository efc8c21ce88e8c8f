package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clipforge/clipforge-agent/internal/cache"
	"github.com/clipforge/clipforge-agent/internal/clip"
)

const fingerprintSize = 64 * 1024

// ProbeFunc reports a container's duration in seconds. It is injected so
// tests and environments without ffprobe can register files anyway.
type ProbeFunc func(path string) (float64, error)

type Service struct {
	repo   Repository
	cache  *cache.Store
	probe  ProbeFunc
	logger *slog.Logger
}

func NewService(repo Repository, store *cache.Store, probe ProbeFunc, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: store, probe: probe, logger: logger}
}

// Register adds a source file to the registry, or refreshes it if the path
// is already known. A video whose fingerprint has no cached analysis gets
// an analyze job queued; a cache hit registers instantly with no oracle
// round trip.
func (s *Service) Register(ctx context.Context, path string) (*Video, *Job, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("path is a directory")
	}
	if !IsVideoFile(absPath) {
		return nil, nil, fmt.Errorf("not a supported video file: %s", filepath.Ext(absPath))
	}

	fingerprint, err := computeFingerprint(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("fingerprint: %w", err)
	}

	v := &Video{
		ID:          clip.NewID(),
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		Present:     true,
		CreatedAt:   time.Now(),
	}

	if existing, err := s.repo.GetVideoByPath(ctx, absPath); err != nil {
		return nil, nil, err
	} else if existing != nil {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
		v.Duration = existing.Duration
	}

	if s.probe != nil && v.Duration == 0 {
		if d, err := s.probe(absPath); err != nil {
			s.logger.Warn("duration probe failed", "path", absPath, "error", err)
		} else {
			v.Duration = d
		}
	}

	if err := s.repo.UpsertVideo(ctx, v); err != nil {
		return nil, nil, err
	}
	// The upsert keeps the stored row's id on path conflict; reload to
	// return the canonical record.
	stored, err := s.repo.GetVideoByPath(ctx, absPath)
	if err != nil {
		return nil, nil, err
	}
	v = stored

	job, err := s.maybeEnqueueAnalyze(ctx, v)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("video registered",
		"video_id", v.ID,
		"path", absPath,
		"cached", job == nil,
	)
	return v, job, nil
}

// maybeEnqueueAnalyze creates an analyze job unless the fingerprint already
// has cached analysis or a live analyze job.
func (s *Service) maybeEnqueueAnalyze(ctx context.Context, v *Video) (*Job, error) {
	if s.cache != nil {
		doc, err := s.cache.Get(ctx, v.Fingerprint)
		if err != nil {
			return nil, err
		}
		if doc != nil && doc.HasAnalysis {
			return nil, nil
		}
	}

	jobs, err := s.repo.ListJobs(ctx, 200)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.Type == JobTypeAnalyze && j.VideoID == v.ID &&
			(j.Status == JobStatusPending || j.Status == JobStatusRunning) {
			return j, nil
		}
	}

	now := time.Now()
	job := &Job{
		ID:        clip.NewID(),
		Type:      JobTypeAnalyze,
		Status:    JobStatusPending,
		VideoID:   v.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("analyze job created", "job_id", job.ID, "video_id", v.ID)
	return job, nil
}

// EnqueueExport queues an export job whose payload is the serialized render
// plan captured at request time.
func (s *Service) EnqueueExport(ctx context.Context, videoID, payload string) (*Job, error) {
	v, err := s.repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("video not found")
	}

	now := time.Now()
	job := &Job{
		ID:        clip.NewID(),
		Type:      JobTypeExport,
		Status:    JobStatusPending,
		VideoID:   videoID,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("export job created", "job_id", job.ID, "video_id", videoID)
	return job, nil
}

func (s *Service) Videos(ctx context.Context) ([]*Video, error) {
	return s.repo.ListVideos(ctx)
}

func (s *Service) Video(ctx context.Context, id string) (*Video, error) {
	return s.repo.GetVideo(ctx, id)
}

func (s *Service) VideoByPath(ctx context.Context, path string) (*Video, error) {
	return s.repo.GetVideoByPath(ctx, path)
}

func (s *Service) Jobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) Job(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) CountVideos(ctx context.Context) (int, error) {
	return s.repo.CountVideos(ctx)
}

// SetPresent flips the registry's view of a file when the watcher sees it
// appear or disappear.
func (s *Service) SetPresent(ctx context.Context, path string, present bool) error {
	v, err := s.repo.GetVideoByPath(ctx, path)
	if err != nil || v == nil {
		return err
	}
	if v.Present == present {
		return nil
	}
	s.logger.Info("video presence changed", "video_id", v.ID, "present", present)
	return s.repo.UpdateVideoPresent(ctx, v.ID, present)
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, io.LimitReader(f, fingerprintSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
