package logger

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Option configures a logger built by New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty renders records through charmbracelet/log for terminals.
// WithJSON wins when both are set.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON emits one JSON object per record.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces every writer configured so far with w.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithSource reports the calling file and line.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// FileOptions controls rotation of a log file added with WithFile.
type FileOptions struct {
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept around.
	MaxBackups int

	// MaxAgeDays removes rotated files older than this many days.
	MaxAgeDays int
}

// WithFile adds a rotating log file next to the configured writers. An
// empty path is ignored.
func WithFile(path string, fo FileOptions) Option {
	return func(c *config) {
		if path == "" {
			return
		}
		c.writers = append(c.writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    fo.MaxSizeMB,
			MaxBackups: fo.MaxBackups,
			MaxAge:     fo.MaxAgeDays,
		})
	}
}
