package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transcriber/internal/domain"
)

const defaultDownloadTimeout = 5 * time.Minute

// Options configures the audio fetcher.
type Options struct {
	// StagingDir receives downloaded files. Created on first use; empty means
	// an audio_downloads directory under the OS temp dir.
	StagingDir string
	// DownloadTimeout bounds one remote fetch. Zero means 5 minutes.
	DownloadTimeout time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// Fetcher resolves a job's audio reference to a readable local file. Remote
// HTTP(S) audio is streamed into the staging directory and removed once the
// job finishes; local paths are validated in place and never copied.
type Fetcher struct {
	stagingDir string
	timeout    time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

func New(opts Options) *Fetcher {
	dir := strings.TrimSpace(opts.StagingDir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "audio_downloads")
	}
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{stagingDir: dir, timeout: timeout, client: client, logger: opts.Logger}
}

var noCleanup = func() {}

// Resolve returns a local path for audioPath plus a cleanup that removes any
// staged copy. The cleanup is always non-nil and safe to call.
func (f *Fetcher) Resolve(ctx context.Context, audioPath, jobID string) (string, func(), error) {
	switch {
	case isRemoteURL(audioPath):
		local, err := f.download(ctx, audioPath, jobID)
		if err != nil {
			return "", noCleanup, err
		}
		return local, func() { f.discard(local) }, nil
	case isSMBPath(audioPath):
		return "", noCleanup, fmt.Errorf("fetch: %w: %s (mount the share locally or provide an HTTP URL)", domain.ErrUnsupportedPath, audioPath)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", noCleanup, fmt.Errorf("fetch: audio file not found: %s", audioPath)
	}
	if info.IsDir() {
		return "", noCleanup, fmt.Errorf("fetch: audio path is not a file: %s", audioPath)
	}
	return audioPath, noCleanup, nil
}

func isRemoteURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func isSMBPath(path string) bool {
	return strings.HasPrefix(path, "//") || strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "smb://")
}

func (f *Fetcher) download(ctx context.Context, rawURL, jobID string) (string, error) {
	if err := os.MkdirAll(f.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("fetch: ensure staging dir: %w", err)
	}

	ext := ".wav"
	if u, err := url.Parse(rawURL); err == nil {
		if e := filepath.Ext(u.Path); e != "" {
			ext = e
		}
	}
	target := filepath.Join(f.stagingDir, stagedName(jobID, ext))

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}

	f.logger.Info().Str("job_id", jobID).Str("url", rawURL).Msg("fetch: downloading remote audio")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: download %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch: download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("fetch: create staged file: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		f.discard(target)
		return "", fmt.Errorf("fetch: stream %s: %w", rawURL, err)
	}

	f.logger.Info().
		Str("job_id", jobID).
		Str("path", target).
		Int64("bytes", written).
		Msg("fetch: download completed")
	return target, nil
}

func (f *Fetcher) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn().Err(err).Str("path", path).Msg("fetch: failed to remove staged file")
	}
}

// stagedName builds a filesystem-safe file name from the job id. Jobs minted
// by intake carry UUIDs, but queue payloads from other producers are not
// trusted to.
func stagedName(jobID, ext string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, jobID)
	if id == "" {
		id = "job"
	}
	return id + ext
}
