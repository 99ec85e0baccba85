package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"transcriber/internal/callback"
	"transcriber/internal/fetch"
	"transcriber/internal/infra"
	"transcriber/internal/pipeline"
	"transcriber/internal/queue"
	"transcriber/internal/stt"
	"transcriber/internal/summarize"
	"transcriber/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, closeLogs, err := buildLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	jobs, err := queue.New(ctx, pool, logger, queue.Options{})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to prepare job queue")
	}

	transcriber, err := buildTranscriber(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure transcriber")
	}

	summarizer, err := buildSummarizer(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure summarizer")
	}

	fetcher := fetch.New(fetch.Options{
		StagingDir:      cfg.TempDownloadDir,
		DownloadTimeout: cfg.DownloadTimeout,
		Logger:          logger,
	})

	dispatcher := callback.New(callback.Options{
		Timeout:    cfg.CallbackTimeout,
		RetryCount: cfg.CallbackRetryCount,
		RetryDelay: cfg.CallbackRetryDelay,
		Logger:     logger,
	})

	executor := pipeline.NewExecutor(pipeline.Config{
		RunTranscription:   cfg.EnableSTT,
		RunSummarization:   cfg.EnableSummarization,
		RunCallback:        cfg.EnableCallback,
		DefaultCallbackURL: cfg.DefaultCallbackURL,
	}, fetcher, transcriber, summarizer, dispatcher, logger)

	loop := worker.NewLoop(jobs, jobs, executor, logger)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func buildLogger(cfg *infra.Config) (zerolog.Logger, func(), error) {
	if !cfg.BypassMode {
		return infra.NewLogger(cfg.AppEnv), func() {}, nil
	}
	logger, closeSink, err := infra.NewMirroredLogger(cfg.AppEnv, cfg.BypassLogFile)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	logger.Info().Str("sink", cfg.BypassLogFile).Msg("worker: bypass mode enabled, mirroring logs to file")
	return logger, func() { _ = closeSink() }, nil
}

func buildTranscriber(cfg *infra.Config, logger zerolog.Logger) (stt.Transcriber, error) {
	if !cfg.EnableSTT {
		// With transcription off the executor never calls a real model.
		logger.Info().Msg("worker: transcription disabled, model not loaded")
		return stt.NewMock(), nil
	}
	return stt.NewWhisperCLI(stt.WhisperCLIOptions{
		Command: cfg.WhisperCLI,
		Model:   cfg.WhisperModel,
		Timeout: cfg.STTTimeout,
		Logger:  logger,
	})
}

func buildSummarizer(cfg *infra.Config) (summarize.Summarizer, error) {
	switch cfg.SummaryProvider {
	case "openai":
		return summarize.NewOpenAI(summarize.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	case "", "static":
		return summarize.NewStatic(cfg.SummaryMaxChars), nil
	default:
		return nil, fmt.Errorf("unsupported summary provider %q", cfg.SummaryProvider)
	}
}
