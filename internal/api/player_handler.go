package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clipforge/clipforge-agent/internal/oracle"
	"github.com/clipforge/clipforge-agent/internal/player"
)

func copilotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		var req CopilotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			WriteError(w, http.StatusBadRequest, "text is required", "BAD_REQUEST")
			return
		}
		if cfg.Oracle == nil {
			WriteError(w, http.StatusServiceUnavailable, "copilot is not configured", "ORACLE_UNAVAILABLE")
			return
		}

		sess := sessionFor(r.Context(), cfg, v)

		resp, err := cfg.Oracle.Interpret(r.Context(), oracle.InterpretRequest{
			VideoPath:    v.Path,
			UserText:     req.Text,
			Summary:      sess.Summary(),
			Clips:        sess.Clips(),
			ActiveClipID: sess.ActiveClipID(),
			Duration:     sess.Duration(),
			Transcript:   sess.Transcript(),
		})
		if err != nil {
			cfg.Logger.Error("copilot interpret failed", "video_id", v.ID, "error", err)
			WriteError(w, http.StatusBadGateway, "copilot request failed", "ORACLE_ERROR")
			return
		}

		outcome := cfg.Resolver.Apply(sess, resp)
		WriteJSON(w, http.StatusOK, CopilotResponse{
			Intent:    string(outcome.Intent),
			Message:   outcome.Message,
			ClipID:    outcome.ClipID,
			Directive: outcome.Directive,
		})
	}
}

func playerModeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		var req PlayerModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess := sessionFor(r.Context(), cfg, v)

		var directive player.Directive
		switch player.Mode(strings.ToUpper(req.Mode)) {
		case player.ModeFull:
			directive = sess.PlayFull()
		case player.ModeSingle:
			if req.ClipID == "" {
				WriteError(w, http.StatusBadRequest, "clip_id is required for SINGLE mode", "BAD_REQUEST")
				return
			}
			d, ok := sess.PlaySingle(req.ClipID)
			if !ok {
				WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
				return
			}
			directive = d
		case player.ModeReel:
			d, ok := sess.PlayReel()
			if !ok {
				WriteError(w, http.StatusConflict, "reel is empty", "REEL_EMPTY")
				return
			}
			directive = d
		default:
			WriteError(w, http.StatusBadRequest, "mode must be FULL, SINGLE or REEL", "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, PlayerModeResponse{
			Directive: directive,
			State:     sess.PlayerState(),
		})
	}
}

func playerTickHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		var tick player.Tick
		if err := json.NewDecoder(r.Body).Decode(&tick); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess := sessionFor(r.Context(), cfg, v)
		WriteJSON(w, http.StatusOK, TickResponse{Directive: sess.Tick(tick)})
	}
}

func reelHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := requireVideo(w, r, cfg)
		if !ok {
			return
		}

		sess := sessionFor(r.Context(), cfg, v)
		WriteJSON(w, http.StatusOK, ReelResponse{Entries: sess.ReelEntries()})
	}
}
