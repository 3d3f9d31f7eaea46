package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the daemon's system logger and the access log middleware.
// Both are flushed when the app stops.
var Module = fx.Options(
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideLoggerMiddleware),
)

func ProvideLogger(lc fx.Lifecycle) *zap.Logger {
	l := NewLog("system.log")
	lc.Append(flushOnStop(l))
	return l
}

func ProvideLoggerMiddleware(lc fx.Lifecycle) *Middleware {
	m := New(defaultAccessLogger())
	lc.Append(flushOnStop(m.access))
	return m
}

// flushOnStop ignores Sync errors; stdout rejects fsync on most terminals.
func flushOnStop(l *zap.Logger) fx.Hook {
	return fx.Hook{
		OnStop: func(context.Context) error {
			_ = l.Sync()
			return nil
		},
	}
}
