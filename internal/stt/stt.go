package stt

import (
	"context"

	"transcriber/internal/domain"
)

// Transcription is the output of one speech-to-text pass over an audio file.
type Transcription struct {
	Text     string
	Segments []domain.Segment
	Language string
}

// Transcriber converts an audio file on local disk into text. Implementations
// bound their own run time; a call always returns.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcription, error)
}
