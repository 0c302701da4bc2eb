// Package logger builds slog loggers for the relay and provides
// attribute helpers for the relay's log records.
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(logger.Component("relay")),
//	)
//	log.Info("peer joined", logger.Fd(fd), logger.ConnID(id))
//
// Attribute helpers return an empty slog.Attr for zero values,
// slog drops such attributes from the output.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownFormat - log format is neither text nor json.
var ErrUnknownFormat = errors.New("logger: unknown format")

// Config - logger settings loaded from environment.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type options struct {
	level  slog.Level
	json   bool
	output io.Writer
	attrs  []slog.Attr
}

// Option configures logger.
type Option func(*options)

// WithLevel sets minimal level of records.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithJSONFormatter switches output to JSON lines.
func WithJSONFormatter() Option {
	return func(o *options) {
		o.json = true
	}
}

// WithOutput sets destination of records, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// New creates text logger at info level writing to stdout, unless options say otherwise.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}
	var h slog.Handler
	if o.json {
		h = slog.NewJSONHandler(o.output, handlerOpts)
	} else {
		h = slog.NewTextHandler(o.output, handlerOpts)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return slog.New(h)
}

// NewFromConfig creates logger from configuration.
// Additional options override config values.
func NewFromConfig(cfg Config, opts ...Option) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	configOpts := []Option{WithLevel(level)}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
	case "json":
		configOpts = append(configOpts, WithJSONFormatter())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}
	return New(append(configOpts, opts...)...), nil
}

// ParseLevel converts level name (debug, info, warn, error) into slog.Level.
// Empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: invalid level %q: %w", name, err)
	}
	return level, nil
}

// Discard returns logger which drops everything, handy as a default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
