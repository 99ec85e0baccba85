package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
	"transcriber/internal/infra"
)

const defaultPollInterval = 2 * time.Second

var schemaStatements = []string{
	`create table if not exists transcription_jobs (
    id bigserial primary key,
    job_id text not null unique,
    payload jsonb not null,
    status text not null default 'queued',
    error_message text not null default '',
    result jsonb,
    callback_delivered boolean,
    callback_attempts int not null default 0,
    enqueued_at timestamptz not null default now(),
    started_at timestamptz,
    finished_at timestamptz
);`,
	`create index if not exists idx_transcription_jobs_claim
    on transcription_jobs (status, id);`,
}

const qInsertJob = `
insert into transcription_jobs (job_id, payload)
values ($1, $2);
`

const qClaimJob = `
with next_job as (
    select id
    from transcription_jobs
    where status = 'queued'
    order by id asc
    for update skip locked
    limit 1
),
claimed as (
    update transcription_jobs
    set status = 'running', started_at = now()
    where id in (select id from next_job)
    returning id, payload
)
select * from claimed;
`

const qFailRow = `
update transcription_jobs
set status = 'error', error_message = $2, finished_at = now()
where id = $1;
`

const qFinishJob = `
update transcription_jobs
set status = $2, error_message = $3, result = $4, finished_at = now()
where job_id = $1;
`

const qRecordDelivery = `
update transcription_jobs
set callback_delivered = $2, callback_attempts = $3
where job_id = $1;
`

// Queue is the durable FIFO handoff between intake and workers, backed by a
// Postgres table. Claims use SKIP LOCKED so each job is visible to exactly one
// dequeuer even with several workers attached; the same row later journals the
// job's terminal state.
type Queue struct {
	db           infra.SQLExecutor
	logger       zerolog.Logger
	pollInterval time.Duration
}

// Options configures optional queue behavior.
type Options struct {
	// PollInterval is the sleep between claim attempts while the queue is
	// empty. Zero means 2s.
	PollInterval time.Duration
}

// New prepares the queue client and ensures the backing table exists.
func New(ctx context.Context, db infra.SQLExecutor, logger zerolog.Logger, opts Options) (*Queue, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("queue: ensure schema: %w", classify(err))
		}
	}

	return &Queue{db: db, logger: logger, pollInterval: interval}, nil
}

// Enqueue appends the job to the tail of the queue. The payload round-trips
// losslessly: a worker decodes exactly the fields intake serialized.
func (q *Queue) Enqueue(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode job %s: %w", job.JobID, err)
	}
	if _, err := q.db.Exec(ctx, qInsertJob, job.JobID, payload); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", job.JobID, classify(err))
	}
	q.logger.Info().Str("job_id", job.JobID).Msg("queue: job enqueued")
	return nil
}

var (
	errNoJob     = errors.New("no job available")
	errPoisonJob = errors.New("undecodable job payload")
)

// Dequeue blocks until a job can be claimed or ctx is done. A claimed row
// moves to running atomically, so no other dequeuer can observe it. Transport
// failures return an error wrapping domain.ErrQueueUnavailable; callers are
// expected to back off and retry.
func (q *Queue) Dequeue(ctx context.Context) (domain.Job, error) {
	for {
		job, err := q.claim(ctx)
		switch {
		case err == nil:
			return job, nil
		case errors.Is(err, errPoisonJob):
			continue
		case !errors.Is(err, errNoJob):
			return domain.Job{}, err
		}

		select {
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *Queue) claim(ctx context.Context) (domain.Job, error) {
	var (
		rowID   int64
		payload []byte
	)
	if err := q.db.QueryRow(ctx, qClaimJob).Scan(&rowID, &payload); err != nil {
		if infra.IsNoRows(err) {
			return domain.Job{}, errNoJob
		}
		if ctx.Err() != nil {
			return domain.Job{}, ctx.Err()
		}
		return domain.Job{}, fmt.Errorf("queue: claim: %w", classify(err))
	}

	var job domain.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		// A row that cannot decode can never produce a result; resolve it
		// terminally in place instead of letting it wedge the queue head.
		q.logger.Error().Err(err).Int64("row_id", rowID).Msg("queue: discarding undecodable job payload")
		if _, markErr := q.db.Exec(ctx, qFailRow, rowID, fmt.Sprintf("undecodable payload: %v", err)); markErr != nil {
			q.logger.Error().Err(markErr).Int64("row_id", rowID).Msg("queue: failed to mark undecodable job")
		}
		return domain.Job{}, errPoisonJob
	}

	q.logger.Info().Str("job_id", job.JobID).Msg("queue: job claimed")
	return job, nil
}

// MarkResult journals the terminal outcome onto the job's queue row.
func (q *Queue) MarkResult(ctx context.Context, result domain.Result) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("queue: encode result %s: %w", result.JobID, err)
	}
	if _, err := q.db.Exec(ctx, qFinishJob, result.JobID, string(result.Status), result.Error, encoded); err != nil {
		return fmt.Errorf("queue: mark result %s: %w", result.JobID, classify(err))
	}
	return nil
}

// MarkDelivery records the callback outcome for a job. A failed delivery is
// bookkeeping for operational follow-up; it never alters the job's status.
func (q *Queue) MarkDelivery(ctx context.Context, jobID string, delivered bool, attempts int) error {
	if _, err := q.db.Exec(ctx, qRecordDelivery, jobID, delivered, attempts); err != nil {
		return fmt.Errorf("queue: mark delivery %s: %w", jobID, classify(err))
	}
	return nil
}

// classify folds transport-level failures into the retryable sentinel while
// leaving context cancellation intact.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
}
