// Package log builds slog.Logger instances for the wiring server and carries
// request-scoped loggers through a context.Context.
//
// # Usage
//
// Create a logger at debug level that writes JSON to standard output:
//
//	logger := log.New(
//		log.WithLevel("debug"),
//		log.WithFormat("json"),
//	)
//
// Handlers attach request attributes once and retrieve the logger later:
//
//	ctx = log.Into(ctx, logger.With("requestId", id))
//	log.From(ctx).Info("Request accepted")
//
// # Conventions
//
//   - Format attribute keys in lower camelCase.
//   - Prefer longer keys over abbreviations (e.g., "error" over "err").
//   - Capitalize the first letter of every log message.
//   - Do not end log messages with punctuation.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Default configuration values for a new logger.
const (
	DefaultLevel     = slog.LevelInfo
	DefaultAddSource = false
	DefaultFormat    = FormatText
)

// Format selects the output encoding.
type Format uint8

const (
	FormatText Format = iota // Human-readable key=value pairs.
	FormatJSON               // One JSON object per line.
)

// String returns the lower-case name of the format.
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

type config struct {
	level     slog.Level
	addSource bool
	format    Format
	writer    io.Writer
}

// Option modifies the logger configuration.
type Option func(*config)

// WithLevel sets the minimum log level. It accepts a slog.Level or any string
// understood by ParseLevel. Invalid values leave the level unchanged.
func WithLevel(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case slog.Level:
			c.level = t
		case string:
			if level, err := ParseLevel(t); err == nil {
				c.level = level
			}
		}
	}
}

// WithFormat sets the output format. It accepts a Format or any string
// understood by ParseFormat. Invalid values leave the format unchanged.
func WithFormat(v any) Option {
	return func(c *config) {
		switch t := v.(type) {
		case Format:
			c.format = t
		case string:
			if format, err := ParseFormat(t); err == nil {
				c.format = format
			}
		}
	}
}

// WithAddSource includes the source position of each log call.
func WithAddSource(add bool) Option {
	return func(c *config) {
		c.addSource = add
	}
}

// WithWriter sets the output destination. A nil value is ignored.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// New creates a logger. Without options, it writes text at info level to
// os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := config{
		level:     DefaultLevel,
		addSource: DefaultAddSource,
		format:    DefaultFormat,
		writer:    os.Stdout,
	}
	for _, opt := range opts {
		opt(&c)
	}

	o := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.addSource,
	}
	if c.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(c.writer, o))
	}
	return slog.New(slog.NewTextHandler(c.writer, o))
}

// Discard returns a logger that drops all records.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a string into a slog.Level, ignoring case. Besides the
// names produced by slog.Level.String, it accepts offsets like "error-8".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ParseFormat converts "text" or "json" into a Format, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return DefaultFormat, fmt.Errorf("invalid log format %q", s)
	}
}

type contextKey struct{}

// Into returns a copy of ctx that carries logger.
func Into(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// From returns the logger carried by ctx, or slog.Default() if there is none.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
