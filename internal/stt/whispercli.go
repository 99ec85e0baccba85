package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"transcriber/internal/domain"
)

const defaultSTTTimeout = 30 * time.Minute

// WhisperCLIOptions configures the external Whisper invocation.
type WhisperCLIOptions struct {
	// Command is the executable to run, e.g. "whisper".
	Command string
	// Model is the model name passed to the CLI. Empty means large-v3.
	Model string
	// Timeout bounds one transcription run. Zero means 30 minutes.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// WhisperCLI shells out to a Whisper-compatible command line and parses the
// JSON transcript it writes. Keeping the model behind a separate process means
// the worker binary carries no GPU toolchain.
type WhisperCLI struct {
	command string
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewWhisperCLI(opts WhisperCLIOptions) (*WhisperCLI, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, fmt.Errorf("stt: whisper command is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "large-v3"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSTTTimeout
	}
	return &WhisperCLI{
		command: opts.Command,
		model:   model,
		timeout: timeout,
		logger:  opts.Logger,
	}, nil
}

// whisperOutput matches the JSON document the CLI writes next to the audio.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Transcription{}, fmt.Errorf("stt: audio file not found: %s", audioPath)
	}

	outDir, err := os.MkdirTemp("", "whisper-out-*")
	if err != nil {
		return Transcription{}, fmt.Errorf("stt: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.command,
		audioPath,
		"--model", w.model,
		"--output_dir", outDir,
		"--output_format", "json",
	)

	started := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Transcription{}, fmt.Errorf("stt: transcription timed out after %s", w.timeout)
		}
		return Transcription{}, fmt.Errorf("stt: whisper run failed: %v: %s", err, tailOf(out))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return Transcription{}, fmt.Errorf("stt: read whisper output: %w", err)
	}

	tr, err := parseWhisperOutput(raw)
	if err != nil {
		return Transcription{}, err
	}

	w.logger.Info().
		Str("audio_path", audioPath).
		Int("segments", len(tr.Segments)).
		Str("language", tr.Language).
		Dur("took", time.Since(started)).
		Msg("stt: transcription completed")
	return tr, nil
}

func parseWhisperOutput(raw []byte) (Transcription, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return Transcription{}, fmt.Errorf("stt: parse whisper output: %w", err)
	}

	segments := make([]domain.Segment, len(out.Segments))
	for i, s := range out.Segments {
		segments[i] = domain.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		parts := make([]string, 0, len(segments))
		for _, s := range segments {
			if s.Text != "" {
				parts = append(parts, s.Text)
			}
		}
		text = strings.Join(parts, " ")
	}

	return Transcription{
		Text:     text,
		Segments: segments,
		Language: NormalizeLanguage(out.Language),
	}, nil
}

// NormalizeLanguage reduces whatever label the model emitted to a lowercase
// base code ("en-US" becomes "en"). Labels that do not parse as a language tag
// pass through lowercased.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

func tailOf(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 300 {
		s = s[len(s)-300:]
	}
	return s
}

var _ Transcriber = (*WhisperCLI)(nil)
