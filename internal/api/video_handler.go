package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge-agent/internal/session"
	"github.com/clipforge/clipforge-agent/internal/video"
)

func registerVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		v, job, err := cfg.VideoService.Register(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp := RegisterVideoResponse{Video: VideoToResponse(v), Cached: job == nil}
		if job != nil {
			resp.JobID = job.ID
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.VideoService.Videos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(v))
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		sess := sessionFor(r.Context(), cfg, v)
		clips := sess.Clips()
		WriteJSON(w, http.StatusOK, ClipsResponse{Summary: sess.Summary(), Clips: clips})
	}
}

func transcriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		sess := sessionFor(r.Context(), cfg, v)
		WriteJSON(w, http.StatusOK, TranscriptResponse{Segments: sess.Transcript()})
	}
}

func mediaFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("video_id")
		if videoID == "" {
			WriteError(w, http.StatusBadRequest, "video_id is required", "BAD_REQUEST")
			return
		}

		v, err := cfg.VideoService.Video(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if v == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		if !v.Present {
			WriteError(w, http.StatusNotFound, "video file is missing on disk", "FILE_MISSING")
			return
		}

		if err := cfg.Media.ServeFile(w, r, v.Path); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "video_id", videoID)
		}
	}
}

// requireVideo resolves the {id} URL parameter to a registered video,
// writing the error response itself when it cannot.
func requireVideo(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*video.Video, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "video id required", "BAD_REQUEST")
		return nil, false
	}

	v, err := cfg.VideoService.Video(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if v == nil {
		WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
		return nil, false
	}
	return v, true
}

// sessionFor returns the editing session for a video, hydrating it from the
// analysis cache the first time it is touched.
func sessionFor(ctx context.Context, cfg ServerConfig, v *video.Video) *session.Session {
	sess := cfg.Sessions.GetOrCreate(v.ID)

	if sess.Duration() <= 0 && v.Duration > 0 {
		sess.SetDuration(v.Duration)
	}

	if cfg.Cache != nil && sess.Summary() == "" && len(sess.Clips()) == 0 && len(sess.Transcript()) == 0 {
		doc, err := cfg.Cache.Get(ctx, v.Fingerprint)
		if err != nil {
			cfg.Logger.Warn("cache read failed", "video_id", v.ID, "error", err)
			return sess
		}
		if doc != nil {
			if doc.HasAnalysis {
				sess.SetAnalysis(doc.Summary, doc.Clips)
			}
			if doc.HasTranscript {
				sess.SetTranscript(doc.Transcript)
			}
		}
	}
	return sess
}
