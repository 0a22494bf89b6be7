package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init configures the package logger once. level is one of DEBUG, INFO, WARN,
// ERROR (case-insensitive); logFile, when non-empty, tees JSON log lines into
// the given file in addition to stderr.
func Init(level string, logFile string) {
	once.Do(func() {
		lvl := parseLevel(level)
		writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
		if logFile != "" {
			if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
				if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
					writers = append(writers, f)
				}
			}
		}
		defaultLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
			Level(lvl).
			With().Timestamp().Logger()
	})
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the initialized package logger.
func Get() *zerolog.Logger {
	Init("INFO", "")
	return &defaultLogger
}

// With returns a logger tagged with the given stage name.
func With(stage string) zerolog.Logger {
	return Get().With().Str("stage", stage).Logger()
}
