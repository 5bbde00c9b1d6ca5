// Package logger builds the slog loggers used across textencode.
//
// The default handler writes text records to stderr and colors whole lines by
// level: warnings yellow, errors red, and cache or persistence activity green
// so storage traffic stands out in long encoding runs.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// storageKeywords mark messages that get highlighted in green.
var storageKeywords = []string{"persist", "cache", "parquet", "stored"}

// Options configures NewLogger.
type Options struct {
	Level     slog.Leveler
	Color     bool
	AddSource bool
}

// NewDefaultLogger returns a colored logger on stderr at level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(os.Stderr, Options{Level: level, Color: true})
}

// NewLogger returns a logger writing text records to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	return slog.New(NewColorHandler(w, opts))
}

// ColorHandler wraps a slog.TextHandler and colors each record line.
type ColorHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	color bool
	next  slog.Handler
}

// NewColorHandler creates a ColorHandler writing to w.
func NewColorHandler(w io.Writer, opts Options) *ColorHandler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &ColorHandler{
		w:     w,
		mu:    &sync.Mutex{},
		color: opts.Color,
		next: slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: opts.AddSource,
		}),
	}
}

// Enabled implements slog.Handler.
func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	code := ""
	if h.color {
		code = lineColor(r)
	}
	if code == "" {
		return h.next.Handle(ctx, r)
	}
	if _, err := io.WriteString(h.w, code); err != nil {
		return err
	}
	err := h.next.Handle(ctx, r)
	if _, werr := io.WriteString(h.w, colorReset); err == nil {
		err = werr
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{w: h.w, mu: h.mu, color: h.color, next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{w: h.w, mu: h.mu, color: h.color, next: h.next.WithGroup(name)}
}

func lineColor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	}
	msg := strings.ToLower(r.Message)
	for _, kw := range storageKeywords {
		if strings.Contains(msg, kw) {
			return colorGreen
		}
	}
	return ""
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
