package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
	"transcriber/internal/stt"
	"transcriber/internal/summarize"
)

// Config carries the per-process stage toggles. It is fixed at worker startup
// so every toggle combination behaves the same for the life of the process.
type Config struct {
	RunTranscription   bool
	RunSummarization   bool
	RunCallback        bool
	DefaultCallbackURL string
}

// AudioResolver stages a job's audio reference onto local disk.
type AudioResolver interface {
	Resolve(ctx context.Context, audioPath, jobID string) (string, func(), error)
}

// Deliverer sends a terminal result to a callback URL and reports how many
// attempts it made.
type Deliverer interface {
	Deliver(ctx context.Context, url string, result domain.Result) (int, error)
}

// Outcome reports one executed job: the terminal Result plus the delivery
// bookkeeping the worker journals alongside it.
type Outcome struct {
	Result           domain.Result
	DeliverySkipped  bool
	Delivered        bool
	DeliveryAttempts int
}

// Executor runs one dequeued job through its stages and drives result
// delivery. Every call produces exactly one terminal Result, whatever the
// toggles say.
type Executor struct {
	cfg         Config
	fetcher     AudioResolver
	transcriber stt.Transcriber
	summarizer  summarize.Summarizer
	dispatcher  Deliverer
	logger      zerolog.Logger
}

func NewExecutor(cfg Config, fetcher AudioResolver, transcriber stt.Transcriber, summarizer summarize.Summarizer, dispatcher Deliverer, logger zerolog.Logger) *Executor {
	return &Executor{
		cfg:         cfg,
		fetcher:     fetcher,
		transcriber: transcriber,
		summarizer:  summarizer,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Execute processes the job and attempts result delivery when configured.
func (e *Executor) Execute(ctx context.Context, job domain.Job) Outcome {
	logger := e.logger.With().Str("job_id", job.JobID).Logger()
	logger.Info().Str("audio_path", job.AudioPath).Str("agent_id", job.AgentID).Msg("pipeline: processing job")

	result := e.runStages(ctx, job, logger)
	outcome := Outcome{Result: result, DeliverySkipped: true}

	if !e.cfg.RunCallback || e.dispatcher == nil {
		logger.Info().Str("status", string(result.Status)).Msg("pipeline: callback disabled, skipping delivery")
		return outcome
	}

	url := strings.TrimSpace(job.CallbackURL)
	if url == "" {
		url = strings.TrimSpace(e.cfg.DefaultCallbackURL)
	}
	if url == "" {
		logger.Warn().Msg("pipeline: no callback url resolvable, skipping delivery")
		return outcome
	}

	attempts, err := e.dispatcher.Deliver(ctx, url, result)
	outcome.DeliverySkipped = false
	outcome.DeliveryAttempts = attempts
	outcome.Delivered = err == nil
	if err != nil {
		// Notification failure only; the job's status stays as resolved.
		logger.Error().Err(err).Msg("pipeline: result delivery failed")
	}
	return outcome
}

func (e *Executor) runStages(ctx context.Context, job domain.Job, logger zerolog.Logger) domain.Result {
	var tr stt.Transcription

	if e.cfg.RunTranscription {
		var err error
		tr, err = e.transcribe(ctx, job, logger)
		if err != nil {
			logger.Error().Err(err).Msg("pipeline: transcription failed")
			return errorResult(job, err)
		}
	} else {
		// Deterministic fixture; the audio path is never touched.
		tr = stt.MockTranscription()
		logger.Info().Msg("pipeline: transcription bypassed, using mock transcript")
	}

	result := doneResult(job, tr)

	if !e.cfg.RunSummarization || e.summarizer == nil {
		logger.Info().Msg("pipeline: summarization disabled, skipping")
		return result
	}

	summary, err := e.summarizer.Summarize(ctx, tr.Text)
	if err != nil {
		// Non-fatal: the job stays done and the summary is omitted.
		logger.Warn().Err(err).Msg("pipeline: summarization failed, omitting summary")
		return result
	}
	result.Summary = summary
	return result
}

func (e *Executor) transcribe(ctx context.Context, job domain.Job, logger zerolog.Logger) (stt.Transcription, error) {
	localPath, cleanup, err := e.fetcher.Resolve(ctx, job.AudioPath, job.JobID)
	if err != nil {
		return stt.Transcription{}, err
	}
	defer cleanup()

	logger.Info().Str("local_path", localPath).Msg("pipeline: transcribing audio")
	return e.transcriber.Transcribe(ctx, localPath)
}

func doneResult(job domain.Job, tr stt.Transcription) domain.Result {
	return domain.Result{
		JobID:      job.JobID,
		Status:     domain.JobStatusDone,
		AudioPath:  job.AudioPath,
		AgentID:    job.AgentID,
		Transcript: tr.Text,
		Language:   tr.Language,
		Segments:   tr.Segments,
		Metadata:   passthroughMetadata(job),
	}
}

func errorResult(job domain.Job, err error) domain.Result {
	return domain.Result{
		JobID:     job.JobID,
		Status:    domain.JobStatusError,
		AudioPath: job.AudioPath,
		AgentID:   job.AgentID,
		Error:     err.Error(),
		Metadata:  passthroughMetadata(job),
	}
}

func passthroughMetadata(job domain.Job) map[string]any {
	if job.Metadata == nil {
		return map[string]any{}
	}
	return job.Metadata
}
