package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
	TypeSpin    LogType = "SPIN"
	TypeHTTP    LogType = "HTTP"
)

var logTypes = map[string]LogType{
	"cmd":   TypeCommand,
	"db":    TypeDB,
	"sys":   TypeSystem,
	"error": TypeError,
	"spin":  TypeSpin,
	"http":  TypeHTTP,
}

// skippedMessages are disgo debug lines that drown everything else.
var skippedMessages = []string{
	"locking buckets",
	"unlocking buckets",
	"gateway event",
	"cleaning up bucket",
	"cleaned up rate limit buckets",
	"binary message received",
	"received gateway message",
	"opening gateway connection",
	"locking gateway rate limiter",
	"unlocking gateway rate limiter",
	"sending gateway command",
	"new request",
	"new response",
	"rate limit response headers",
	"sending heartbeat",
}

// internalAttrs are folded into the message instead of printed as key=value.
var internalAttrs = map[string]bool{
	"type":      true,
	"name":      true,
	"user_name": true,
	"status":    true,
	"error":     true,
	"took":      true,
}

type Options struct {
	Level  slog.Leveler
	Prefix string
	Color  bool
	Writer io.Writer
}

type CustomHandler struct {
	opts   Options
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewHandler(opts Options) *CustomHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Prefix == "" {
		opts.Prefix = "Skyroulette"
	}
	return &CustomHandler{opts: opts, mu: &sync.Mutex{}}
}

// ParseLevel maps the config's level names onto slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CustomHandler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	return &CustomHandler{
		opts:   h.opts,
		mu:     h.mu,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(r.Message) {
		return nil
	}

	levelColor, levelText := levelStyle(r.Level)

	fields := collect(h.attrs, r)
	message := r.Message
	if r.Level >= slog.LevelError && fields.err != "" {
		message = fmt.Sprintf("%s: %s", message, fields.err)
	}
	if fields.name != "" && fields.user != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, fields.name, fields.user)
	} else if fields.name != "" {
		message = fmt.Sprintf("%s [%s]", message, fields.name)
	}
	if fields.status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, fields.status)
	}
	if fields.took != "" {
		message = fmt.Sprintf("%s (took %s)", message, fields.took)
	}

	var b strings.Builder
	b.WriteString(h.color(colorWhite))
	fmt.Fprintf(&b, "[%s] [%s] [%s%s%s] [%s] %s",
		h.opts.Prefix,
		r.Time.Format("15:04:05"),
		h.color(levelColor), levelText, h.color(colorWhite),
		fields.logType,
		message,
	)
	for _, extra := range fields.extra {
		b.WriteString(" ")
		b.WriteString(extra)
	}
	b.WriteString(h.color(colorReset))
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.Writer, b.String())
	return err
}

func (h *CustomHandler) color(c string) string {
	if !h.opts.Color {
		return ""
	}
	return c
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

type recordFields struct {
	logType LogType
	name    string
	user    string
	status  string
	err     string
	took    string
	extra   []string
}

func collect(handlerAttrs []slog.Attr, r slog.Record) recordFields {
	fields := recordFields{logType: TypeSystem}
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "type":
			if t, ok := logTypes[a.Value.String()]; ok {
				fields.logType = t
			}
		case "name":
			fields.name = a.Value.String()
		case "user_name":
			fields.user = a.Value.String()
		case "status":
			fields.status = a.Value.String()
		case "error":
			fields.err = fmt.Sprintf("%v", a.Value.Any())
		case "took":
			fields.took = a.Value.String()
		}
		if !internalAttrs[a.Key] {
			fields.extra = append(fields.extra, fmt.Sprintf("%s=%v", a.Key, a.Value))
		}
		return true
	}
	for _, a := range handlerAttrs {
		visit(a)
	}
	r.Attrs(visit)
	return fields
}

func shouldSkipLog(message string) bool {
	lower := strings.ToLower(message)
	for _, skip := range skippedMessages {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}

// Since formats a duration the way every "took" attribute is logged.
func Since(start time.Time) slog.Attr {
	return slog.Duration("took", time.Since(start).Round(time.Microsecond))
}
