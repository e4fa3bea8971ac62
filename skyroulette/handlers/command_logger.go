package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
)

const (
	commandTimeout = 10 * time.Second
	slowCommand    = 2 * time.Second
)

// WrapWithLogging wraps a command handler with logging functionality
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		attrs := []any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		}

		slog.Debug("Command started", attrs...)

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("command panicked: %v", r)
				}
			}()
			done <- h(e)
		}()

		select {
		case err := <-done:
			attrs = append(attrs, slog.Duration("took", time.Since(start)))
			switch {
			case err != nil:
				slog.Error("Command failed", append(attrs,
					slog.Any("error", err),
					slog.String("status", "failed"),
				)...)
			case time.Since(start) > slowCommand:
				slog.Warn("Command executed slowly", append(attrs, slog.String("status", "slow"))...)
			default:
				slog.Info("Command completed", append(attrs, slog.String("status", "success"))...)
			}
			return err

		case <-time.After(commandTimeout):
			slog.Error("Command timed out", append(attrs,
				slog.String("status", "timeout"),
				slog.Duration("timeout", commandTimeout),
			)...)
			return fmt.Errorf("command timed out after %s", commandTimeout)
		}
	}
}

// WrapAutocomplete recovers panics in autocomplete handlers. Autocomplete
// fires on every keystroke so it is not logged on success.
func WrapAutocomplete(name string, h handler.AutocompleteHandler) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in autocomplete handler",
					slog.String("type", "cmd"),
					slog.String("name", name),
					slog.Any("panic", r))
				err = fmt.Errorf("autocomplete %s panicked: %v", name, r)
			}
		}()
		return h(e)
	}
}
