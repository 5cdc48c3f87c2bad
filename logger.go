package meter

import "log"

// Logger is the only collaborator the Meter requires for output. Its sink
// is out of scope for this library: Log is handed a level, a marker, and a
// fully formatted line or envelope, and must not block the caller's
// lifecycle transition on anything but its own I/O.
type Logger interface {
	Log(level Level, marker Marker, text string)
}

// LevelEnabler is an optional capability a Logger may implement to let the
// emission layer short-circuit expensive formatting (e.g. serializing the
// TRACE envelope) when the level is disabled.
type LevelEnabler interface {
	IsEnabled(level Level) bool
}

// StdLogger is the default Logger, a thin leveled wrapper around the
// standard log package. It exists so the library is usable without any
// logging framework wired in; production code is expected to supply its
// own Logger adapter over whatever the host application already uses.
type StdLogger struct {
	minLevel Level
}

// NewStdLogger returns a Logger that writes every event at or above
// minLevel to the standard logger.
func NewStdLogger(minLevel Level) *StdLogger {
	return &StdLogger{minLevel: minLevel}
}

func (l *StdLogger) Log(level Level, marker Marker, text string) {
	if !l.IsEnabled(level) {
		return
	}
	log.Printf("[%s] %s %s", level, marker, text)
}

func (l *StdLogger) IsEnabled(level Level) bool {
	return level >= l.minLevel
}

var _ Logger = (*StdLogger)(nil)
var _ LevelEnabler = (*StdLogger)(nil)

func isEnabled(l Logger, level Level) bool {
	if le, ok := l.(LevelEnabler); ok {
		return le.IsEnabled(level)
	}
	return true
}
