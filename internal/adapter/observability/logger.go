// Package observability provides the structured logger shared by the
// CLI, the HTTP server middleware, and the language-server bridge.
package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"
)

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ParseFormat maps a config string to a LogFormat. The empty string
// picks human format on a terminal and JSON otherwise.
func ParseFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	case "human":
		return LogFormatHuman
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return LogFormatHuman
		}
		return LogFormatJSON
	}
}

// Logger writes leveled, structured log lines.
type Logger struct {
	level  LogLevel
	format LogFormat
	now    func() time.Time
}

// NewLogger creates a logger with the specified level and format.
func NewLogger(level LogLevel, format LogFormat) *Logger {
	return &Logger{level: level, format: format, now: time.Now}
}

// LogDebug logs a debug message with structured fields.
func (l *Logger) LogDebug(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelDebug {
		return
	}
	l.emit("debug", message, fields)
}

// LogInfo logs an informational message with structured fields.
func (l *Logger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.emit("info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *Logger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.emit("warning", message, fields)
}

// LogError logs an error message with structured fields.
func (l *Logger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit("error", message, fields)
}

func (l *Logger) emit(level, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		entry := map[string]interface{}{
			"level":     level,
			"message":   message,
			"timestamp": l.now().UTC().Format(time.RFC3339),
		}
		for k, v := range fields {
			entry[k] = v
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			log.Printf(`{"level":"error","message":"log entry failed to marshal"}`)
			return
		}
		log.Print(string(raw))
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(level))
	b.WriteString("] ")
	b.WriteString(message)
	for _, key := range sortedKeys(fields) {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		raw, err := json.Marshal(fields[key])
		if err != nil {
			b.WriteString("?")
			continue
		}
		b.Write(raw)
	}
	log.Print(b.String())
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
