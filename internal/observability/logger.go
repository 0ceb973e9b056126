package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"happymart-dashboard/internal/config"
)

// NewLogger writes to stdout. attrs are attached to every record, typically
// the service name and build version.
func NewLogger(cfg config.LoggerConfig, attrs ...any) *slog.Logger {
	return newLogger(os.Stdout, cfg, attrs...)
}

func newLogger(w io.Writer, cfg config.LoggerConfig, attrs ...any) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.Level),
		AddSource: true,
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type ctxKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// LoggerFrom scopes base to the request carried by ctx.
func LoggerFrom(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		base = base.With("request_id", id)
	}
	if id := TraceID(ctx); id != "" {
		base = base.With("trace_id", id)
	}
	return base
}
