package infra

import (
	"io"
	"os"
	"sync"
)

// defaultSinkLimit bounds the mirrored log file at 10MB.
const defaultSinkLimit = 10 * 1024 * 1024

// fileSink is a mutex-guarded append-only writer. When the next write would
// push the file past its size limit the file is truncated to zero and writing
// continues, keeping the most recent entries. Every write is synced so lines
// survive an abrupt process exit.
type fileSink struct {
	mu    sync.Mutex
	f     *os.File
	limit int64
	size  int64
}

func newFileSink(path string, limit int64) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileSink{f: f, limit: limit, size: info.Size()}, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size+int64(len(p)) > s.limit {
		if err := s.f.Truncate(0); err != nil {
			return 0, err
		}
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		s.size = 0
	}

	n, err := s.f.Write(p)
	if err != nil {
		return n, err
	}
	s.size += int64(n)
	_ = s.f.Sync()
	return n, nil
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
