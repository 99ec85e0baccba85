package domain

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Job is one accepted transcription request. Intake creates it, the queue
// carries it verbatim, and it is never mutated afterwards; everything that
// happens downstream is reported through a Result.
type Job struct {
	JobID       string         `json:"job_id"`
	AudioPath   string         `json:"audio_path"`
	AgentID     string         `json:"agent_id"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
