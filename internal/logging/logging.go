// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  *slog.Logger
	rotator *lumberjack.Logger
)

func init() {
	// Default to INFO level
	InitLogger("info", "")
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger initializes the global logger with the specified level. When
// file is not empty, records are also written to a rotating log file.
func InitLogger(level, file string) {
	mu.Lock()
	defer mu.Unlock()

	if rotator != nil {
		rotator.Close()
		rotator = nil
	}

	var w io.Writer = os.Stderr
	if file != "" {
		rotator = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			LocalTime:  true,
		}
		w = io.MultiWriter(os.Stderr, rotator)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}
