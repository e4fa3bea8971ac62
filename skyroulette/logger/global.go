package logger

import (
	"log/slog"
	"time"
)

// LogCommand logs command execution
func LogCommand(name string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Command failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Command executed", attrs...)
	}
}

// LogSpin logs the outcome of a spin attempt, whatever its source.
func LogSpin(source string, status string, member string, err error) {
	attrs := []any{
		slog.String("type", "spin"),
		slog.String("name", source),
		slog.String("status", status),
	}
	if member != "" {
		attrs = append(attrs, slog.String("member", member))
	}

	if err != nil {
		slog.Error("Spin failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Spin handled", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
