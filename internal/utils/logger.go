package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions controls where and how the application logs
type LoggerOptions struct {
	Level  string
	Format string // "console" or "json"
	Dir    string // optional directory for a rotated redman.log
}

// NewLogger creates a new configured logger.
// The returned closer releases the log file, if any.
func NewLogger(opts LoggerOptions) (*zerolog.Logger, io.Closer) {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	if opts.Format == "json" {
		output = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, "redman.log"),
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
				Compress:   true,
				LocalTime:  true,
			}
			output = io.MultiWriter(output, rotator)
			closer = rotator
		}
	}

	// Parse log level
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
