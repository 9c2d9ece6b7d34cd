package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Special fields understood by Cloud Logging
// https://docs.cloud.google.com/logging/docs/agent/logging/configuration#special-fields
const (
	traceField        = "logging.googleapis.com/trace"
	spanIDField       = "logging.googleapis.com/spanId"
	traceSampledField = "logging.googleapis.com/trace_sampled"
	severityField     = "severity"
)

// NewGoogleCloudTracingLogHandler wraps baseHandler so records carry the active trace and a Cloud Logging severity
//
// NOTE: Requires the use of the *Context slog methods to get the tracing info
func NewGoogleCloudTracingLogHandler(baseHandler slog.Handler, project string) *googleCloudTracingLogHandler {
	return &googleCloudTracingLogHandler{base: baseHandler, tracePrefix: "projects/" + project + "/traces/"}
}

type googleCloudTracingLogHandler struct {
	base        slog.Handler
	tracePrefix string
}

func severity(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func (h *googleCloudTracingLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *googleCloudTracingLogHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String(severityField, severity(r.Level)))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String(traceField, h.tracePrefix+sc.TraceID().String()),
			slog.String(spanIDField, sc.SpanID().String()),
			slog.Bool(traceSampledField, sc.TraceFlags().IsSampled()),
		)
	}
	return h.base.Handle(ctx, r)
}

func (h *googleCloudTracingLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &googleCloudTracingLogHandler{base: h.base.WithAttrs(attrs), tracePrefix: h.tracePrefix}
}

func (h *googleCloudTracingLogHandler) WithGroup(name string) slog.Handler {
	return &googleCloudTracingLogHandler{base: h.base.WithGroup(name), tracePrefix: h.tracePrefix}
}

var _ slog.Handler = (*googleCloudTracingLogHandler)(nil)
