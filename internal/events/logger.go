// Package events provides the structured logger shared by all vault
// components.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// Logger provides leveled structured logging. Field chains are
// immutable: WithField returns a child logger sharing the output.
type Logger struct {
	mu     *sync.Mutex
	level  LogLevel
	format string // "text" or "json"
	output io.Writer
	fields map[string]interface{}
}

// NewLogger creates a logger writing to the given output.
func NewLogger(level LogLevel, format string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		mu:     &sync.Mutex{},
		level:  level,
		format: format,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// NewTestLogger creates a quiet logger for tests.
func NewTestLogger() *Logger {
	return NewLogger(ErrorLevel, "text", io.Discard)
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		mu:     l.mu,
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: merged,
	}
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) { l.log(DebugLevel, msg) }

// Info logs at info level.
func (l *Logger) Info(msg string) { l.log(InfoLevel, msg) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string) { l.log(WarnLevel, msg) }

// Error logs at error level.
func (l *Logger) Error(msg string) { l.log(ErrorLevel, msg) }

func (l *Logger) log(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		entry := make(map[string]interface{}, len(l.fields)+3)
		for k, v := range l.fields {
			entry[k] = v
		}
		entry["time"] = now
		entry["level"] = level.String()
		entry["msg"] = msg
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"level":"error","msg":"marshal log entry: %v"}`, err))
		}
		fmt.Fprintf(l.output, "%s\n", data)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", now, strings.ToUpper(level.String()), msg)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, l.fields[k])
	}
	fmt.Fprintln(l.output, sb.String())
}
