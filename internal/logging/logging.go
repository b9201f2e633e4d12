// Package logging provides the authentication core's structured logger.
//
// Grounded on stacklok-toolhive's pkg/logger (a slog-based debug/info/warn/
// error surface); the teacher's own toolhive-core/logging module has no
// source in the retrieval pack, so rather than depend on an unverified
// external API this builds directly on log/slog in the same shape — see
// DESIGN.md.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the narrow logging surface every component takes a dependency
// on. Fields must never include raw token bytes — callers pass redacted
// summaries (token_id, config_id, user_id; never the token itself).
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger writing JSON lines to os.Stderr at the given level.
func New(level slog.Level) Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

// Noop discards every log line; useful in tests that don't assert on logs.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}
