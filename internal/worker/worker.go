package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
	"transcriber/internal/pipeline"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Source yields jobs to process. *queue.Queue satisfies it.
type Source interface {
	Dequeue(ctx context.Context) (domain.Job, error)
}

// Journal records terminal outcomes onto a job's queue row.
type Journal interface {
	MarkResult(ctx context.Context, result domain.Result) error
	MarkDelivery(ctx context.Context, jobID string, delivered bool, attempts int) error
}

// Executor turns one job into a terminal outcome.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) pipeline.Outcome
}

// Loop is the worker's consumption loop: block on dequeue, execute, journal,
// repeat. One job is in flight at a time, and a fault in one job never stops
// the loop.
type Loop struct {
	source   Source
	journal  Journal
	executor Executor
	logger   zerolog.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewLoop(source Source, journal Journal, executor Executor, logger zerolog.Logger) *Loop {
	return &Loop{
		source:         source,
		journal:        journal,
		executor:       executor,
		logger:         logger,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Run consumes jobs until ctx is canceled. Queue outages are retried with
// capped doubling backoff. Cancellation stops dequeuing but lets the job
// already in flight run to its terminal result.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().Msg("worker: started, waiting for jobs")
	backoff := l.initialBackoff

	for {
		job, err := l.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("worker: shutdown requested")
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrQueueUnavailable) {
				l.logger.Error().Err(err).Dur("retry_in", backoff).Msg("worker: queue unavailable")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff = min(backoff*2, l.maxBackoff)
				continue
			}
			l.logger.Error().Err(err).Msg("worker: dequeue failed")
			continue
		}
		backoff = l.initialBackoff

		// A claimed job runs to its terminal state even during shutdown;
		// per-stage timeouts still bound each call.
		l.handle(context.WithoutCancel(ctx), job)
	}
}

func (l *Loop) handle(ctx context.Context, job domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().
				Str("job_id", job.JobID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("worker: panic while processing job")
			l.journalResult(ctx, domain.Result{
				JobID:     job.JobID,
				Status:    domain.JobStatusError,
				AudioPath: job.AudioPath,
				AgentID:   job.AgentID,
				Error:     fmt.Sprintf("worker panic: %v", r),
				Metadata:  job.Metadata,
			})
		}
	}()

	outcome := l.executor.Execute(ctx, job)

	l.journalResult(ctx, outcome.Result)
	if !outcome.DeliverySkipped {
		if err := l.journal.MarkDelivery(ctx, outcome.Result.JobID, outcome.Delivered, outcome.DeliveryAttempts); err != nil {
			l.logger.Error().Err(err).Str("job_id", outcome.Result.JobID).Msg("worker: failed to journal delivery")
		}
	}

	l.logger.Info().
		Str("job_id", outcome.Result.JobID).
		Str("status", string(outcome.Result.Status)).
		Msg("worker: job finished")
}

func (l *Loop) journalResult(ctx context.Context, result domain.Result) {
	if err := l.journal.MarkResult(ctx, result); err != nil {
		l.logger.Error().Err(err).Str("job_id", result.JobID).Msg("worker: failed to journal result")
	}
}
