package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return New(Options{StagingDir: t.TempDir(), Logger: zerolog.Nop()})
}

func TestResolveLocalFile(t *testing.T) {
	f := newTestFetcher(t)

	audio := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	local, cleanup, err := f.Resolve(context.Background(), audio, "job-1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if local != audio {
		t.Fatalf("local = %q, want %q", local, audio)
	}

	cleanup()
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("cleanup removed a caller-owned file: %v", err)
	}
}

func TestResolveMissingLocalFile(t *testing.T) {
	f := newTestFetcher(t)

	_, _, err := f.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), "job-1")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolveRejectsDirectories(t *testing.T) {
	f := newTestFetcher(t)

	_, _, err := f.Resolve(context.Background(), t.TempDir(), "job-1")
	if err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestResolveRejectsSMBPaths(t *testing.T) {
	f := newTestFetcher(t)

	for _, path := range []string{
		"//fileserver/recordings/call.wav",
		`\\fileserver\recordings\call.wav`,
		"smb://fileserver/recordings/call.wav",
	} {
		_, _, err := f.Resolve(context.Background(), path, "job-1")
		if !errors.Is(err, domain.ErrUnsupportedPath) {
			t.Fatalf("Resolve(%q) error = %v, want ErrUnsupportedPath", path, err)
		}
	}
}

func TestResolveDownloadsRemoteAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake audio bytes"))
	}))
	defer srv.Close()

	staging := t.TempDir()
	f := New(Options{StagingDir: staging, HTTPClient: srv.Client(), Logger: zerolog.Nop()})

	local, cleanup, err := f.Resolve(context.Background(), srv.URL+"/recordings/call.mp3", "job-9")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Dir(local) != staging {
		t.Fatalf("staged outside staging dir: %q", local)
	}
	if filepath.Ext(local) != ".mp3" {
		t.Fatalf("staged extension = %q, want .mp3", filepath.Ext(local))
	}

	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Fatalf("staged content = %q", data)
	}

	cleanup()
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Fatalf("cleanup left staged file behind: %v", err)
	}
}

func TestResolveDownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	staging := t.TempDir()
	f := New(Options{StagingDir: staging, HTTPClient: srv.Client(), Logger: zerolog.Nop()})

	_, _, err := f.Resolve(context.Background(), srv.URL+"/gone.wav", "job-9")
	if err == nil {
		t.Fatal("expected error for 404 download")
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir not empty after failed download: %v", entries)
	}
}

func TestStagedNameSanitizesJobID(t *testing.T) {
	got := stagedName("../../etc/passwd", ".wav")
	if got != "------etc-passwd.wav" {
		t.Fatalf("stagedName = %q", got)
	}
}
