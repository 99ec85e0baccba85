package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// NewMirroredLogger behaves like NewLogger but additionally copies every log
// line to a durable file at path, so a validation run can be inspected after
// the process exits. The console format is skipped to keep the mirrored lines
// machine readable. The returned closer flushes and releases the file.
func NewMirroredLogger(appEnv, path string) (zerolog.Logger, func() error, error) {
	sink, err := newFileSink(path, defaultSinkLimit)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(os.Stdout, sink)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, sink.Close, nil
}
