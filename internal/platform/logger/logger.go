package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"person-registry/internal/platform/config"
)

const (
	maxFileSizeMB  = 50
	maxFileBackups = 5
	maxFileAgeDays = 28
)

// New builds the process logger. Records always go to out. When a log
// directory is configured they are also written to a combined file, and
// records at error level or above to a separate error file.
//
// The returned closer flushes and closes the file sinks.
func New(cfg config.Log, out io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{newHandler(cfg.Format, out, opts)}
	var closers multiCloser

	if cfg.Directory != "" {
		combined := rotatingFile(filepath.Join(cfg.Directory, cfg.CombinedFile))
		errFile := rotatingFile(filepath.Join(cfg.Directory, cfg.ErrorFile))
		closers = append(closers, combined, errFile)

		handlers = append(handlers,
			slog.NewJSONHandler(combined, opts),
			slog.NewJSONHandler(errFile, &slog.HandlerOptions{Level: slog.LevelError}),
		)
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closers, nil
	}
	return slog.New(fanout(handlers)), closers, nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "text" {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxFileBackups,
		MaxAge:     maxFileAgeDays,
		Compress:   true,
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
