// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// OperatorIDKey is the context key for the authenticated operator ID
	OperatorIDKey contextKey = "operator_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and operator_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if operatorID, ok := ctx.Value(OperatorIDKey).(string); ok && operatorID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("operator_id", operatorID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// PaymentTransition logs a payment status transition for a service request.
func (l *Logger) PaymentTransition(reference, from, to, paymentID, trigger string) {
	l.Info("payment_transition",
		slog.String("reference", reference),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("payment_id", paymentID),
		slog.String("trigger", trigger),
	)
}

// EffectOutcome logs the result of a side-effect dispatch attempt.
func (l *Logger) EffectOutcome(reference, effect, outcome string, err error) {
	if err != nil {
		l.Error("effect_outcome",
			slog.String("reference", reference),
			slog.String("effect", effect),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Info("effect_outcome",
		slog.String("reference", reference),
		slog.String("effect", effect),
		slog.String("outcome", outcome),
	)
}

// SecurityEvent logs security-relevant events such as webhook signature failures.
func (l *Logger) SecurityEvent(event, detail, clientIP string) {
	l.Warn("security_event",
		slog.String("event", event),
		slog.String("detail", detail),
		slog.String("client_ip", clientIP),
	)
}

// AdminAction logs an administrative override with operator identity and reason.
func (l *Logger) AdminAction(action, reference, operatorID, reason string) {
	l.Info("admin_action",
		slog.String("action", action),
		slog.String("reference", reference),
		slog.String("operator_id", operatorID),
		slog.String("reason", reason),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
