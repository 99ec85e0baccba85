package domain

// Segment is one timestamped span of a transcript. Segments are chronological
// and non-overlapping.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the terminal outcome of a Job and doubles as the callback wire
// payload. Correlation fields are copied from the originating Job so receivers
// never need queue access to identify what finished.
type Result struct {
	JobID      string         `json:"job_id"`
	Status     JobStatus      `json:"status"`
	AudioPath  string         `json:"audio_path"`
	AgentID    string         `json:"agent_id"`
	Transcript string         `json:"transcript,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Language   string         `json:"language,omitempty"`
	Segments   []Segment      `json:"segments,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}
