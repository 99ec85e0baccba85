package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
)

const defaultAttemptTimeout = 30 * time.Second

// Options configures the dispatcher's delivery policy.
type Options struct {
	// Timeout bounds each individual delivery attempt. Zero means 30s.
	Timeout time.Duration
	// RetryCount is the number of additional attempts after the first, so a
	// delivery makes at most 1+RetryCount HTTP requests.
	RetryCount int
	// RetryDelay is the fixed wait between attempts. There is no wait after
	// the final attempt.
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Dispatcher posts terminal results to callback URLs with bounded retries.
// Delivery failure is a notification failure: it is reported to the caller
// for journaling but never turns a resolved job into a failed one.
type Dispatcher struct {
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

func New(opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	retryCount := opts.RetryCount
	if retryCount < 0 {
		retryCount = 0
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		timeout:    timeout,
		retryCount: retryCount,
		retryDelay: opts.RetryDelay,
		client:     client,
		logger:     opts.Logger,
	}
}

// Deliver posts result to url as JSON. It makes up to 1+retryCount attempts
// separated by the fixed delay and reports how many attempts it made. Any 2xx
// response ends delivery immediately; the response body is never interpreted.
func (d *Dispatcher) Deliver(ctx context.Context, url string, result domain.Result) (int, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("callback: encode payload for %s: %w", result.JobID, err)
	}

	total := d.retryCount + 1
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		lastErr = d.attempt(ctx, url, body)
		if lastErr == nil {
			d.logger.Info().
				Str("job_id", result.JobID).
				Str("callback_url", url).
				Int("attempt", attempt).
				Msg("callback: delivered")
			return attempt, nil
		}

		d.logger.Warn().
			Err(lastErr).
			Str("job_id", result.JobID).
			Str("callback_url", url).
			Int("attempt", attempt).
			Int("max_attempts", total).
			Msg("callback: attempt failed")

		if attempt < total {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return attempt, fmt.Errorf("callback: %w: %w", domain.ErrDeliveryFailed, ctx.Err())
			}
		}
	}

	d.logger.Error().
		Str("job_id", result.JobID).
		Str("callback_url", url).
		Int("attempts", total).
		Msg("callback: delivery abandoned")
	return total, fmt.Errorf("callback: %w after %d attempts: %w", domain.ErrDeliveryFailed, total, lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received status %d", resp.StatusCode)
	}
	return nil
}
