package summarize

import "context"

// Summarizer condenses a transcript into a short summary. A summarizer
// failure is non-fatal to the surrounding job; callers decide how to degrade.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
