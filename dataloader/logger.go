package dataloader

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed information, typically of interest only when diagnosing problems.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for informational messages that highlight the progress of the engine.
	LogLevelInfo
	// LogLevelWarn is for potentially harmful situations that might require attention.
	LogLevelWarn
	// LogLevelError is for error events that might still allow the engine to continue running.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the interface for logging within the pipeline engine.
// It is optional: an Engine built from a Config with no Logger uses
// NoOpLogger.
type Logger interface {
	Log(level LogLevel, format string, args ...interface{})
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NoOpLogger discards every message. It is the default logger.
type NoOpLogger struct{}

func (n *NoOpLogger) Log(level LogLevel, format string, args ...interface{}) {}
func (n *NoOpLogger) Debug(format string, args ...interface{})              {}
func (n *NoOpLogger) Info(format string, args ...interface{})               {}
func (n *NoOpLogger) Warn(format string, args ...interface{})               {}
func (n *NoOpLogger) Error(format string, args ...interface{})              {}

// SimpleLogger writes to stdout/stderr using the standard log package.
// Debug and Info go to stdout; Warn and Error go to stderr.
type SimpleLogger struct {
	MinLevel     LogLevel
	StdoutLogger *log.Logger
	StderrLogger *log.Logger
}

// NewSimpleLogger creates a SimpleLogger with the given minimum level.
func NewSimpleLogger(minLevel LogLevel) *SimpleLogger {
	return &SimpleLogger{
		MinLevel:     minLevel,
		StdoutLogger: log.New(os.Stdout, "", log.LstdFlags),
		StderrLogger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (s *SimpleLogger) Log(level LogLevel, format string, args ...interface{}) {
	if level < s.MinLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	prefix := fmt.Sprintf("[%s] ", level.String())
	switch level {
	case LogLevelDebug, LogLevelInfo:
		s.StdoutLogger.Printf("%s%s", prefix, msg)
	case LogLevelWarn, LogLevelError:
		s.StderrLogger.Printf("%s%s", prefix, msg)
	}
}

func (s *SimpleLogger) Debug(format string, args ...interface{}) { s.Log(LogLevelDebug, format, args...) }
func (s *SimpleLogger) Info(format string, args ...interface{})  { s.Log(LogLevelInfo, format, args...) }
func (s *SimpleLogger) Warn(format string, args ...interface{})  { s.Log(LogLevelWarn, format, args...) }
func (s *SimpleLogger) Error(format string, args ...interface{}) { s.Log(LogLevelError, format, args...) }

// ZapLogger adapts a *zap.Logger to the Logger interface, for callers
// (notably cmd/dataloader-demo) that already run zap elsewhere in the
// process and want engine logs routed through the same sink.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z. If z is nil, zap.NewNop() is used.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

func (l *ZapLogger) Log(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LogLevelDebug:
		l.z.Debug(msg)
	case LogLevelInfo:
		l.z.Info(msg)
	case LogLevelWarn:
		l.z.Warn(msg)
	case LogLevelError:
		l.z.Error(msg)
	}
}

func (l *ZapLogger) Debug(format string, args ...interface{}) { l.Log(LogLevelDebug, format, args...) }
func (l *ZapLogger) Info(format string, args ...interface{})  { l.Log(LogLevelInfo, format, args...) }
func (l *ZapLogger) Warn(format string, args ...interface{})  { l.Log(LogLevelWarn, format, args...) }
func (l *ZapLogger) Error(format string, args ...interface{}) { l.Log(LogLevelError, format, args...) }
