package stt

import (
	"context"
	"strings"

	"transcriber/internal/domain"
)

// Mock is the deterministic stand-in used when transcription is toggled off.
// It never inspects the audio path, so pipeline validation works with paths
// that do not exist on the worker host.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	return MockTranscription(), nil
}

var _ Transcriber = (*Mock)(nil)

// MockTranscription returns the canonical fixed transcript: four chronological
// segments, English, identical on every call.
func MockTranscription() Transcription {
	segments := []domain.Segment{
		{Start: 0.0, End: 3.5, Text: "This is a test transcription."},
		{Start: 3.5, End: 7.2, Text: "The audio file has been processed in testing mode."},
		{Start: 7.2, End: 10.8, Text: "No actual STT was performed."},
		{Start: 10.8, End: 15.0, Text: "This is dummy data for E2E pipeline testing."},
	}

	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}

	return Transcription{
		Text:     strings.Join(parts, " "),
		Segments: segments,
		Language: "en",
	}
}
