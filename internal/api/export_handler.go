package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/compositor"
	"github.com/clipforge/clipforge-agent/internal/export"
	"github.com/clipforge/clipforge-agent/internal/session"
	"github.com/clipforge/clipforge-agent/internal/video"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}
		if !v.Present {
			WriteError(w, http.StatusConflict, "video file is missing on disk", "FILE_MISSING")
			return
		}

		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if cfg.Doctor != nil {
			if caps, err := cfg.Doctor.Get(r.Context()); err == nil && caps != nil && !caps.CanExport() {
				WriteError(w, http.StatusConflict, "ffmpeg is not available", "FFMPEG_MISSING")
				return
			}
		}

		sess := sessionFor(r.Context(), cfg, v)

		plan, err := buildExportPlan(sess, req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		payload, err := json.Marshal(plan)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to encode export plan", "INTERNAL_ERROR")
			return
		}

		job, err := cfg.VideoService.EnqueueExport(r.Context(), v.ID, string(payload))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, ExportResponse{JobID: job.ID, Filename: plan.Filename})
	}
}

// buildExportPlan freezes the session's current edit state into a job
// payload so later edits cannot reshape a queued export.
func buildExportPlan(sess *session.Session, req ExportRequest) (*video.ExportPlan, error) {
	var segments []compositor.Segment
	virtual := clip.VirtualEdit{}
	title := strings.TrimSpace(req.Filename)

	switch strings.ToLower(req.Source) {
	case "reel":
		for _, c := range sess.ReelEntries() {
			segments = append(segments, segmentFor(sess, c))
		}
		if len(segments) == 0 {
			return nil, errEmptyExport("reel is empty")
		}

	case "virtual":
		virtual = sess.VirtualEdit()
		if !virtual.Active || len(virtual.KeepSegments) == 0 {
			return nil, errEmptyExport("no virtual edit is active")
		}
		for _, rng := range virtual.KeepSegments {
			segments = append(segments, compositor.Segment{
				Clip: clip.Clip{ID: clip.NewID(), StartTime: rng.Start, EndTime: rng.End},
			})
		}
		if title == "" && virtual.Description != "" {
			title = virtual.Description
		}

	case "", "clips":
		if len(req.ClipIDs) > 0 {
			for _, id := range req.ClipIDs {
				c, ok := sess.Clip(id)
				if !ok {
					return nil, errEmptyExport("clip not found: " + id)
				}
				segments = append(segments, segmentFor(sess, c))
			}
		} else {
			for _, c := range sess.Clips() {
				segments = append(segments, segmentFor(sess, c))
			}
		}
		if len(segments) == 0 {
			return nil, errEmptyExport("no clips to export")
		}

	default:
		return nil, errEmptyExport("source must be clips, reel or virtual")
	}

	if title == "" && len(segments) > 0 {
		title = segments[0].Clip.Title
	}

	return &video.ExportPlan{
		Filename: export.Filename(title, time.Now()),
		Segments: segments,
		Virtual:  virtual,
	}, nil
}

func segmentFor(sess *session.Session, c clip.Clip) compositor.Segment {
	seg := compositor.Segment{Clip: c}
	if e, ok := sess.EditFor(c.ID); ok {
		seg.Edit = &e
	}
	return seg
}

type errEmptyExport string

func (e errEmptyExport) Error() string { return string(e) }

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifacts, err := cfg.Exports.List()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ArtifactsResponse{Artifacts: make([]ArtifactResponse, len(artifacts))}
		for i, a := range artifacts {
			resp.Artifacts[i] = ArtifactResponse{
				Name:    a.Name,
				Size:    a.Size,
				ModTime: a.ModTime.Format(time.RFC3339),
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		path, err := cfg.Exports.Path(name)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid artifact name", "BAD_REQUEST")
			return
		}

		if err := cfg.Media.ServeDownload(w, r, path, name); err != nil {
			cfg.Logger.Error("export download error", "error", err, "artifact", name)
		}
	}
}
