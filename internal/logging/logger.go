// Package logging sets up slog and carries per-request log fields.
//
// Handlers and engine operations log through FromContext, so every entry
// carries the chi request id plus whatever fields were attached with Attach
// further up the call chain (client IP, import id).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger, writing to stdout. level is a slog
// level name ("warning" is accepted too); format is "text" or "json".
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. Unknown formats fall back to text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseLevel reads a slog level name. Anything unrecognized is info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type fieldsKey struct{}

// Attach returns a copy of ctx whose FromContext loggers also carry args.
// Fields accumulate: attaching to an already attached context keeps the
// earlier fields.
func Attach(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]any)
	return context.WithValue(ctx, fieldsKey{}, append(slices.Clip(prev), args...))
}

// FromContext returns the default logger with the request id and any
// attached fields.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("listing contacts", "group", group)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := middleware.GetReqID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if fields, _ := ctx.Value(fieldsKey{}).([]any); len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// WithFields is FromContext(ctx).With(args...), for loggers that stay local
// to one function.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
