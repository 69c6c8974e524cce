package content

import "time"

// LogLevel classifies a LogEvent.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogEvent describes something the engine did.
type LogEvent struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
	Err     error
	Time    time.Time
}

// Logger records engine events. Implementations must be safe for concurrent use.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

func loggerOrNoop(logger Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return logger
}

func logEvent(logger Logger, level LogLevel, message string, err error, fields map[string]any) {
	logger.Log(LogEvent{
		Level:   level,
		Message: message,
		Fields:  fields,
		Err:     err,
		Time:    time.Now(),
	})
}
