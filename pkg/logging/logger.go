// Package logging builds the structured logger used by the extraction engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger and closes its log file, if any.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it is closeable.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(Level())

	prefix := os.Getenv("XDF_LOG_PREFIX")
	if prefix == "" {
		prefix = "xdf"
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}
	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// New creates a logger configured from the environment:
//
//	XDF_LOG_LEVEL: debug, info, warn, error (default: info)
//	XDF_LOG_PREFIX: message prefix (default: "xdf")
//	XDF_LOG_TO_FILE: when "1", log to a timestamped file instead of stderr
func New() *LoggerCloser {
	output := io.Writer(os.Stderr)
	if os.Getenv("XDF_LOG_TO_FILE") == "1" {
		name := fmt.Sprintf("xdf-exporter-%s.log", time.Now().Format("20060102-150405"))
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
	}
	return NewWithWriter(output)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Level returns the level selected by XDF_LOG_LEVEL.
func Level() log.Level {
	switch strings.ToLower(os.Getenv("XDF_LOG_LEVEL")) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return Level() == log.DebugLevel
}
