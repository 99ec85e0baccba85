package summarize

import "context"

const defaultMaxChars = 500

// Static produces a leading-text summary without calling a model: the first
// maxChars characters of the transcript, with an ellipsis when truncated. It
// stands in for a real language model in environments without one.
type Static struct {
	maxChars int
}

func NewStatic(maxChars int) *Static {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Static{maxChars: maxChars}
}

func (s *Static) Summarize(ctx context.Context, transcript string) (string, error) {
	runes := []rune(transcript)
	if len(runes) <= s.maxChars {
		return transcript, nil
	}
	return string(runes[:s.maxChars]) + "...", nil
}

var _ Summarizer = (*Static)(nil)
