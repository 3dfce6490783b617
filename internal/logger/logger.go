// Package logger provides a dual-output slog.Logger wrapper: JSON to a
// daily log file for ingestion, human-readable text to stdout for local
// operation.
package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Logger wraps slog.Logger; cmd/losengine logs through its structured
// methods. cmd/schedulechart uses the standard log package instead.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a structured logger writing JSON lines to
// logDir/<date>.log and text lines to stdout.
func New(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logFile := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	})
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})

	return &Logger{
		Logger: slog.New(fanoutHandler{jsonHandler, textHandler}),
		file:   file,
	}, nil
}

// Close releases the underlying log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fanoutHandler writes every record to both the file (JSON) and stdout
// (text) handlers — the slog.Handler equivalent of io.MultiWriter.
type fanoutHandler struct {
	file slog.Handler
	text slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.file.Enabled(ctx, level) || h.text.Enabled(ctx, level)
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.file.Handle(ctx, r.Clone()); err != nil {
		return err
	}
	return h.text.Handle(ctx, r.Clone())
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{h.file.WithAttrs(attrs), h.text.WithAttrs(attrs)}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{h.file.WithGroup(name), h.text.WithGroup(name)}
}
