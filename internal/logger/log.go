package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

var level = new(slog.LevelVar)

// SetLevel accepts debug, info, warn or error.
func SetLevel(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "", "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

type FivemLogger struct {
	logger *slog.Logger
}

func New(loggerName string) Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	attrs := []slog.Attr{slog.String("logger", loggerName)}
	h := handler.WithAttrs(attrs)
	return FivemLogger{slog.New(h)}
}

func (fl FivemLogger) Info(msg string, args ...any) {
	fl.logger.Info(msg, args...)
}

func (fl FivemLogger) Warn(msg string, args ...any) {
	fl.logger.Warn(msg, args...)
}

func (fl FivemLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	fl.logger.Error(msg, args...)
}

func (fl FivemLogger) Debug(msg string, args ...any) {
	fl.logger.Debug(msg, args...)
}

func (fl FivemLogger) With(args ...any) Logger {
	return FivemLogger{fl.logger.With(args...)}
}
