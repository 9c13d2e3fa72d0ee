package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is a captured log record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler is a slog.Handler that records everything it receives, for
// asserting on log output in tests.
type CaptureHandler struct {
	mu      sync.Mutex
	records []LogRecord
	attrs   []slog.Attr
}

// NewCaptureLogger returns a logger writing into a fresh CaptureHandler.
func NewCaptureLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{}
	return slog.New(h), h
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, LogRecord{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs returns a derived handler that still records into this one, so
// tests see output from loggers created with Logger.With.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedCapture{parent: h, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured so far.
func (h *CaptureHandler) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Contains reports whether any record carries the message.
func (h *CaptureHandler) Contains(message string) bool {
	for _, r := range h.Records() {
		if r.Message == message {
			return true
		}
	}
	return false
}

// sharedCapture funnels derived-logger records back into the parent handler.
type sharedCapture struct {
	parent *CaptureHandler
	attrs  []slog.Attr
}

func (s *sharedCapture) Enabled(context.Context, slog.Level) bool { return true }

func (s *sharedCapture) Handle(ctx context.Context, r slog.Record) error {
	merged := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	merged.AddAttrs(s.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		merged.AddAttrs(a)
		return true
	})
	return s.parent.Handle(ctx, merged)
}

func (s *sharedCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedCapture{parent: s.parent, attrs: append(append([]slog.Attr{}, s.attrs...), attrs...)}
}

func (s *sharedCapture) WithGroup(string) slog.Handler { return s }
