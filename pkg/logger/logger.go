// Package logger builds slog loggers with environment defaults and attributes
// pulled from the request context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrymomot/talktime/pkg/environment"
)

// Format is the log output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ContextExtractor returns an attribute derived from ctx, if any.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// Option configures New.
type Option func(*config)

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithLevelName parses debug, info, warn or error. Unknown names keep the
// current level.
func WithLevelName(name string) Option {
	return func(c *config) {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err == nil {
			c.level = l
		}
	}
}

// WithFormat panics on an unknown format.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput ignores nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors registers extractors run on every record.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithContextValue logs ctx.Value(key) under name when present.
func WithContextValue(name string, key any) Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		if name == "" || key == nil {
			return slog.Attr{}, false
		}
		if v := ctx.Value(key); v != nil {
			return slog.Any(name, v), true
		}
		return slog.Attr{}, false
	})
}

// WithEnvironment applies per-environment defaults: text at debug level in
// development, JSON at info level elsewhere. The service and env names are
// attached to every record.
func WithEnvironment(env environment.Environment, service string) Option {
	return func(c *config) {
		if env.IsDevelopment() {
			c.level = slog.LevelDebug
			c.format = FormatText
		} else {
			c.level = slog.LevelInfo
			c.format = FormatJSON
		}
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service))
		}
		c.attrs = append(c.attrs, slog.String("env", env.String()))
	}
}

// New creates a logger. Defaults to JSON at info level on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}
	var h slog.Handler
	if cfg.format == FormatText {
		h = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		h = slog.NewJSONHandler(cfg.output, handlerOpts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}
	return slog.New(&contextHandler{next: h, extractors: cfg.extractors})
}

// Nop discards everything. Used as the default for optional loggers.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// contextHandler injects extractor attributes at Handle time so request
// scoped values are read per record.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
