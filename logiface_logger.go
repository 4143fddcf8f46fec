package reactor

import (
	"github.com/joeycumines/logiface"
)

// LogifaceLogger adapts a github.com/joeycumines/logiface Logger to the
// package's Logger interface, for callers who already standardize on
// logiface (and one of its writer backends, e.g. stumpy, zerolog or slog)
// across their service. E is the concrete Event implementation the wrapped
// Logger was built with (e.g. *stumpy.Event).
type LogifaceLogger[E logiface.Event] struct {
	L *logiface.Logger[E]
}

// NewLogifaceLogger wraps l.
func NewLogifaceLogger[E logiface.Event](l *logiface.Logger[E]) *LogifaceLogger[E] {
	return &LogifaceLogger[E]{L: l}
}

// IsEnabled implements Logger.
func (a *LogifaceLogger[E]) IsEnabled(level LogLevel) bool {
	return logifaceLevel(level) <= a.L.Level()
}

// Log implements Logger.
func (a *LogifaceLogger[E]) Log(entry LogEntry) {
	b := a.L.Build(logifaceLevel(entry.Level))
	if b == nil {
		return
	}
	b = b.Str("category", entry.Category)
	if entry.LoopName != "" {
		b = b.Str("loop", entry.LoopName)
	}
	if entry.ConnName != "" {
		b = b.Str("conn", entry.ConnName)
	}
	if entry.Fd != 0 {
		b = b.Int("fd", entry.Fd)
	}
	for k, v := range entry.Context {
		b = b.Any(k, v)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}

func logifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
