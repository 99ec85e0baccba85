package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"transcriber/internal/domain"
)

type transcriptionRequest struct {
	AudioPath   string         `json:"audio_path"`
	AgentID     string         `json:"agent_id"`
	CallbackURL string         `json:"callback_url"`
	Metadata    map[string]any `json:"metadata"`
}

type transcriptionResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// TranscriptionsCreate accepts a transcription job and enqueues it. The
// response confirms queuing only; completion is reported exclusively through
// the job's callback.
func (a *App) TranscriptionsCreate(w http.ResponseWriter, r *http.Request) {
	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.AudioPath = strings.TrimSpace(req.AudioPath)
	req.AgentID = strings.TrimSpace(req.AgentID)
	if req.AudioPath == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "audio_path is required")
		return
	}
	if req.AgentID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "agent_id is required")
		return
	}

	jobID := uuid.NewString()
	logger := a.Logger.With().Str("job_id", jobID).Logger()

	callbackURL := strings.TrimSpace(req.CallbackURL)
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(a.Cfg.DefaultCallbackURL)
	}
	if callbackURL == "" {
		logger.Warn().Msg("intake: job has no callback url, result will only be journaled")
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	job := domain.Job{
		JobID:       jobID,
		AudioPath:   req.AudioPath,
		AgentID:     req.AgentID,
		CallbackURL: callbackURL,
		Metadata:    metadata,
	}

	if err := a.Queue.Enqueue(r.Context(), job); err != nil {
		logger.Error().Err(err).Msg("intake: enqueue failed")
		a.error(w, http.StatusServiceUnavailable, "queue_unavailable", "failed to enqueue transcription job")
		return
	}

	evt := logger.Info().
		Str("audio_path", req.AudioPath).
		Str("agent_id", req.AgentID)
	if country := a.submitterCountry(r); country != "" {
		evt = evt.Str("country", country)
	}
	evt.Msg("intake: job queued")

	a.json(w, http.StatusAccepted, transcriptionResponse{JobID: jobID, Status: "queued"})
}
