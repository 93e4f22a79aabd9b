// Package logger wraps slog with the fields this service logs repeatedly.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with domain helpers.
type Logger struct {
	*slog.Logger
}

// New builds a logger for env. Development gets a text handler on stdout,
// every other environment gets JSON.
func New(env, level string) *Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env, level string) *Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var h slog.Handler
	if strings.EqualFold(env, "development") || strings.EqualFold(env, "dev") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// LogSaleRecorded logs a committed sale.
func (l *Logger) LogSaleRecorded(ctx context.Context, sessionID, saleID, seller string, seats int, total string) {
	l.InfoContext(ctx, "Sale Recorded",
		slog.String("session_id", sessionID),
		slog.String("sale_id", saleID),
		slog.String("seller", seller),
		slog.Int("seats", seats),
		slog.String("total", total),
	)
}

// LogSaleCancelled logs a reversed sale.
func (l *Logger) LogSaleCancelled(ctx context.Context, sessionID, saleID string) {
	l.InfoContext(ctx, "Sale Cancelled",
		slog.String("session_id", sessionID),
		slog.String("sale_id", saleID),
	)
}

// LogSaleRejected logs a sale refused by the capacity check.
func (l *Logger) LogSaleRejected(ctx context.Context, sessionID string, seats, available int) {
	l.WarnContext(ctx, "Sale Rejected",
		slog.String("session_id", sessionID),
		slog.Int("requested_seats", seats),
		slog.Int("available_seats", available),
	)
}

// LogAuthSuccess logs a successful login.
func (l *Logger) LogAuthSuccess(ctx context.Context, email, role string) {
	l.InfoContext(ctx, "Authentication Success", slog.String("email", email), slog.String("role", role))
}

// LogAuthFailure logs a rejected login.
func (l *Logger) LogAuthFailure(ctx context.Context, email, reason, ip string) {
	l.WarnContext(ctx, "Authentication Failure",
		slog.String("email", email),
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogHTTPError logs a request that ended in a server error.
func (l *Logger) LogHTTPError(ctx context.Context, method, path string, status int, err error) {
	l.ErrorContext(ctx, "HTTP Error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}
