package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AccessLog logs one record per request through logger. Query parameters are
// logged as a group so the logger's redaction sees each parameter by name;
// the raw URI is never logged.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&accessFormatter{logger: logger})
}

type accessFormatter struct {
	logger *slog.Logger
}

func (f *accessFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr),
	}
	if q := r.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		params := make([]any, 0, len(keys))
		for _, k := range keys {
			params = append(params, slog.String(k, strings.Join(q[k], ",")))
		}
		attrs = append(attrs, slog.Group("query", params...))
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return &accessEntry{logger: f.logger.With(attrs...), r: r}
}

type accessEntry struct {
	logger *slog.Logger
	r      *http.Request
}

func (e *accessEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	e.logger.Log(e.r.Context(), level, "request completed",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("latency", elapsed),
	)
}

func (e *accessEntry) Panic(v any, stack []byte) {
	e.logger.Error("request panicked", slog.Any("panic", v), slog.String("stack", string(stack)))
}
