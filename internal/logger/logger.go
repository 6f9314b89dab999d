// Package logger configures log/slog for the feed services: JSON records
// on stdout, a service attribute stamped on every line, and a per-packet
// trace ID carried through context.Context so one broadcast packet can be
// followed across the pipeline.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type traceKey struct{}

// Init builds the logger for one service and installs it as the slog
// default, so package-level slog calls share the same handler.
func Init(service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	l := slog.New(h).With(slog.String("service", service))
	slog.SetDefault(l)
	return l
}

// WithTraceID tags ctx with a trace ID for downstream log lines.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace ID stored in ctx, or "" when unset.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// PacketTraceID derives a trace ID for one broadcast packet from the feed
// name and receive time. Nanosecond receive times keep IDs unique within
// a feed without a UUID dependency.
func PacketTraceID(feed string, recv time.Time) string {
	return feed + "-" + strconv.FormatInt(recv.UnixNano(), 10)
}

// TraceAttrs returns the slog attrs for ctx's trace ID, nil when unset.
// Usage: slog.Info("msg", logger.TraceAttrs(ctx)...)
func TraceAttrs(ctx context.Context) []any {
	id := TraceID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("trace_id", id)}
}
