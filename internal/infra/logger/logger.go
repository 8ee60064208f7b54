// Package logger owns the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config controls Setup. An empty Path logs to stderr.
type Config struct {
	Level string
	Path  string
	Debug bool
}

var (
	mu      sync.RWMutex
	global  = discard()
	logFile *os.File
)

func discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// Setup installs a JSON logger and returns a cleanup that closes any log
// file and restores the discard logger.
func Setup(cfg Config) (func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var (
		out  io.Writer = os.Stderr
		file *os.File
	)
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
		file, err = os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		out = file
	}

	l := New(out, level, cfg.Debug)
	mu.Lock()
	global = l
	logFile = file
	mu.Unlock()

	l.Debug("logger.initialized", "level", level.String(), "path", cfg.Path)

	return func() error {
		mu.Lock()
		defer mu.Unlock()
		var cerr error
		if logFile != nil {
			cerr = logFile.Close()
		}
		logFile = nil
		global = discard()
		return cerr
	}, nil
}

// New builds a JSON logger writing UTC RFC3339Nano timestamps to w.
func New(w io.Writer, level slog.Level, addSource bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}))
}

// L returns the current process logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
