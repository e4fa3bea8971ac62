package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// QueryLogger is a bun query hook that logs every statement at debug level
// and failures at error level.
type QueryLogger struct {
	slowQuery time.Duration
}

func NewQueryLogger(slowQuery time.Duration) *QueryLogger {
	return &QueryLogger{slowQuery: slowQuery}
}

func (l *QueryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (l *QueryLogger) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	attrs := []slog.Attr{
		slog.String("type", "db"),
		slog.String("operation", event.Operation()),
		slog.String("query", event.Query),
		slog.Duration("took", duration),
	}

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		slog.LogAttrs(ctx, slog.LevelError, "Query failed", append(attrs, slog.Any("error", event.Err))...)
		return
	}

	if event.Result != nil {
		if affected, err := event.Result.RowsAffected(); err == nil {
			attrs = append(attrs, slog.Int64("affected_rows", affected))
		}
	}

	level := slog.LevelDebug
	if l.slowQuery > 0 && duration >= l.slowQuery {
		level = slog.LevelWarn
	}
	slog.LogAttrs(ctx, level, "Query executed", attrs...)
}
