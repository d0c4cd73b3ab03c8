package serve

import (
	"fmt"
	"log/slog"
	"strings"
)

// LogLevel is the logging verbosity forwarded to the server engine.
type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

// ParseLogLevel converts a string into a LogLevel.
// An empty string resolves to LogLevelInfo.
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(strings.ToLower(s)) {
	case "":
		return LogLevelInfo, nil
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical:
		return LogLevel(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("unknown log level: %q", s)
}

// SlogLevel maps the level onto log/slog's scale. Critical has no slog
// equivalent and maps above error.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelCritical:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// String returns the level as passed to the engine.
func (l LogLevel) String() string {
	return string(l)
}
