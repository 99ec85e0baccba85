package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transcriber/internal/domain"
	"transcriber/internal/infra"
)

type fakeQueue struct {
	jobs []domain.Job
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job domain.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestApp(queue *fakeQueue, cfg *infra.Config) *App {
	if cfg == nil {
		cfg = &infra.Config{}
	}
	return NewApp(queue, cfg, nil, zerolog.Nop())
}

func postTranscription(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", strings.NewReader(body))
	req.RemoteAddr = "198.51.100.10:1234"
	rec := httptest.NewRecorder()
	app.TranscriptionsCreate(rec, req)
	return rec
}

func TestTranscriptionsCreateQueuesJob(t *testing.T) {
	queue := &fakeQueue{}
	app := newTestApp(queue, nil)

	body := `{
		"audio_path": "/mnt/recordings/call-881.wav",
		"agent_id": "agent-7",
		"callback_url": "https://crm.example.com/hooks/done",
		"metadata": {"ticket": "T-42"}
	}`
	rec := postTranscription(t, app, body)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var resp transcriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "queued" {
		t.Fatalf("response status = %q, want queued", resp.Status)
	}
	if _, err := uuid.Parse(resp.JobID); err != nil {
		t.Fatalf("job_id %q is not a uuid: %v", resp.JobID, err)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("enqueued jobs = %d, want 1", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.JobID != resp.JobID {
		t.Fatalf("queued job id %q does not match response %q", job.JobID, resp.JobID)
	}
	if job.AudioPath != "/mnt/recordings/call-881.wav" || job.AgentID != "agent-7" {
		t.Fatalf("job fields lost: %+v", job)
	}
	if job.CallbackURL != "https://crm.example.com/hooks/done" {
		t.Fatalf("callback url = %q", job.CallbackURL)
	}
	if job.Metadata["ticket"] != "T-42" {
		t.Fatalf("metadata lost: %+v", job.Metadata)
	}
}

func TestTranscriptionsCreateAppliesDefaultCallback(t *testing.T) {
	queue := &fakeQueue{}
	app := newTestApp(queue, &infra.Config{DefaultCallbackURL: "https://hooks.example.com/default"})

	rec := postTranscription(t, app, `{"audio_path": "/a.wav", "agent_id": "agent-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if queue.jobs[0].CallbackURL != "https://hooks.example.com/default" {
		t.Fatalf("callback url = %q, want default applied", queue.jobs[0].CallbackURL)
	}
}

func TestTranscriptionsCreateAcceptsMissingCallback(t *testing.T) {
	queue := &fakeQueue{}
	app := newTestApp(queue, nil)

	rec := postTranscription(t, app, `{"audio_path": "/a.wav", "agent_id": "agent-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if queue.jobs[0].CallbackURL != "" {
		t.Fatalf("callback url = %q, want empty", queue.jobs[0].CallbackURL)
	}
	if queue.jobs[0].Metadata == nil {
		t.Fatal("metadata should default to an empty map")
	}
}

func TestTranscriptionsCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"audio_path": `},
		{name: "missing audio_path", body: `{"agent_id": "agent-1"}`},
		{name: "blank audio_path", body: `{"audio_path": "   ", "agent_id": "agent-1"}`},
		{name: "missing agent_id", body: `{"audio_path": "/a.wav"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			queue := &fakeQueue{}
			rec := postTranscription(t, newTestApp(queue, nil), tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if len(queue.jobs) != 0 {
				t.Fatalf("invalid request reached the queue: %+v", queue.jobs)
			}
		})
	}
}

func TestTranscriptionsCreateQueueUnavailable(t *testing.T) {
	queue := &fakeQueue{err: domain.ErrQueueUnavailable}
	app := newTestApp(queue, nil)

	rec := postTranscription(t, app, `{"audio_path": "/a.wav", "agent_id": "agent-1"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp map[string]map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"]["code"] != "queue_unavailable" {
		t.Fatalf("error code = %q", resp["error"]["code"])
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(&fakeQueue{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	app.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", resp["status"])
	}
}
