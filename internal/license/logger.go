package license

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaskKey hides all but the first and last four characters of a license key
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// logOperation logs the outcome of a license server round trip and annotates
// the active span
func logOperation(ctx context.Context, logger *slog.Logger, action, key string, status string, start time.Time, err error) {
	duration := time.Since(start)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("license.action", action),
			attribute.String("license.status", status),
			attribute.Int64("license.duration_ms", duration.Milliseconds()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	attrs := []slog.Attr{
		slog.String("action", action),
		slog.String("license_key", MaskKey(key)),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(ctx, slog.LevelWarn, "License server call failed", attrs...)
		return
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "License server call completed", attrs...)
}
