package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
)

type countingHandler struct {
	mu       sync.Mutex
	statuses []int
	bodies   []domain.Result
	types    []string
	methods  []string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var res domain.Result
	_ = json.NewDecoder(r.Body).Decode(&res)
	h.bodies = append(h.bodies, res)
	h.types = append(h.types, r.Header.Get("Content-Type"))
	h.methods = append(h.methods, r.Method)

	status := http.StatusOK
	if len(h.statuses) > 0 {
		status = h.statuses[0]
		h.statuses = h.statuses[1:]
	}
	w.WriteHeader(status)
}

func (h *countingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bodies)
}

func newTestDispatcher(srv *httptest.Server, retries int) *Dispatcher {
	return New(Options{
		RetryCount: retries,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestDeliverSucceedsFirstAttempt(t *testing.T) {
	h := &countingHandler{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newTestDispatcher(srv, 3)
	result := domain.Result{JobID: "job-1", Status: domain.JobStatusDone, Transcript: "hello"}

	attempts, err := d.Deliver(context.Background(), srv.URL, result)
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if h.calls() != 1 {
		t.Fatalf("server calls = %d, want 1", h.calls())
	}
	if h.methods[0] != http.MethodPost {
		t.Fatalf("method = %q, want POST", h.methods[0])
	}
	if h.types[0] != "application/json" {
		t.Fatalf("content-type = %q", h.types[0])
	}
	if h.bodies[0].JobID != "job-1" || h.bodies[0].Transcript != "hello" {
		t.Fatalf("payload mismatch: %+v", h.bodies[0])
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	h := &countingHandler{statuses: []int{http.StatusBadGateway, http.StatusInternalServerError}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newTestDispatcher(srv, 3)

	attempts, err := d.Deliver(context.Background(), srv.URL, domain.Result{JobID: "job-1", Status: domain.JobStatusDone})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if h.calls() != 3 {
		t.Fatalf("server calls = %d, want 3", h.calls())
	}
}

func TestDeliverExhaustsAllAttempts(t *testing.T) {
	h := &countingHandler{statuses: []int{502, 502, 502, 502, 502}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newTestDispatcher(srv, 3)

	attempts, err := d.Deliver(context.Background(), srv.URL, domain.Result{JobID: "job-1", Status: domain.JobStatusError})
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts = %d, want 4 (1 initial + 3 retries)", attempts)
	}
	if h.calls() != 4 {
		t.Fatalf("server calls = %d, want 4", h.calls())
	}
}

func TestDeliverZeroRetriesMakesOneAttempt(t *testing.T) {
	h := &countingHandler{statuses: []int{503}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newTestDispatcher(srv, 0)

	attempts, err := d.Deliver(context.Background(), srv.URL, domain.Result{JobID: "job-1", Status: domain.JobStatusDone})
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDeliverIgnoresResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"error","unrelated":"receiver state"}`))
	}))
	defer srv.Close()

	d := newTestDispatcher(srv, 2)

	attempts, err := d.Deliver(context.Background(), srv.URL, domain.Result{JobID: "job-1", Status: domain.JobStatusDone})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestDeliverUnreachableTarget(t *testing.T) {
	d := New(Options{
		RetryCount: 1,
		RetryDelay: time.Millisecond,
		Timeout:    200 * time.Millisecond,
		Logger:     zerolog.Nop(),
	})

	attempts, err := d.Deliver(context.Background(), "http://127.0.0.1:1/cb", domain.Result{JobID: "job-1", Status: domain.JobStatusDone})
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Deliver error = %v, want ErrDeliveryFailed", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}
