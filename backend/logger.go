package backend

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one executed statement, passed to a Logger after
// the statement completes (successfully or not).
type QueryEvent struct {
	SQL      string
	Args     []any
	Duration time.Duration
	Affected int64
	Err      error
}

// Logger receives a QueryEvent for every statement Execute/
// ExecuteAndFetchOne runs. Implementations must not block the caller for
// long; Backend invokes the logger synchronously after each statement.
type Logger interface {
	LogQuery(ctx context.Context, ev QueryEvent)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(ctx context.Context, ev QueryEvent)

func (f LoggerFunc) LogQuery(ctx context.Context, ev QueryEvent) { f(ctx, ev) }

// noopLogger discards every event; it is the Backend default.
type noopLogger struct{}

func (noopLogger) LogQuery(context.Context, QueryEvent) {}

// SlogLogger adapts log/slog to the Logger interface, logging at Debug
// for successful statements and Warn for failed ones.
type SlogLogger struct{ Logger *slog.Logger }

func (s SlogLogger) LogQuery(_ context.Context, ev QueryEvent) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	if ev.Err != nil {
		log.Warn("query failed", "sql", ev.SQL, "args", ev.Args, "duration", ev.Duration, "err", ev.Err)
		return
	}
	log.Debug("query", "sql", ev.SQL, "args", ev.Args, "duration", ev.Duration, "affected", ev.Affected)
}
